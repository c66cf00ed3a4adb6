package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Compact compacts the index to reclaim unused space
func (a *App) Compact(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lm, err := a.workspace()
	if err != nil {
		return err
	}
	defer lm.Close()

	indexPath := a.Config.IndexPath
	if !filepath.IsAbs(indexPath) {
		indexPath = filepath.Join(lm.Root(), indexPath)
	}

	info, err := os.Stat(indexPath)
	if err != nil {
		return lm.Compact()
	}
	sizeBefore := info.Size()

	if err := lm.Compact(); err != nil {
		return err
	}

	info, err = os.Stat(indexPath)
	if err != nil {
		return err
	}
	sizeAfter := info.Size()

	fmt.Printf("Compacted: %s -> %s\n", formatSize(sizeBefore), formatSize(sizeAfter))
	return nil
}
