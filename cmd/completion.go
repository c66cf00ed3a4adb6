package cmd

import (
	"fmt"
)

// Completion outputs shell completion scripts
func Completion(shell string) error {
	switch shell {
	case "bash":
		fmt.Print(bashCompletion)
	case "zsh":
		fmt.Print(zshCompletion)
	case "fish":
		fmt.Print(fishCompletion)
	default:
		return fmt.Errorf("unknown shell: %s\nSupported: bash, zsh, fish", shell)
	}
	return nil
}

const bashCompletion = `_lockmark() {
    local cur prev words cword
    _init_completion || return

    local commands="encrypt decrypt seal unseal hint passwd diff status untrack compact keyring shell help completion"

    if [[ $cword -eq 1 ]]; then
        COMPREPLY=($(compgen -W "$commands" -- "$cur"))
        return
    fi

    local cmd="${words[1]}"
    case "$cmd" in
        encrypt)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "--hint -r --remove" -- "$cur"))
            else
                _filedir
            fi
            ;;
        decrypt)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "--force --keep-local --keep-both --stdout" -- "$cur"))
            else
                _filedir locked
            fi
            ;;
        seal)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "--hint --hidden --file" -- "$cur"))
            elif [[ "$prev" == "--file" ]]; then
                _filedir
            fi
            ;;
        unseal)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "-w --write" -- "$cur"))
            else
                _filedir
            fi
            ;;
        hint|passwd|diff|untrack)
            _filedir
            ;;
        shell)
            COMPREPLY=($(compgen -W "--scope --timeout --no-cache" -- "$cur"))
            ;;
        keyring)
            if [[ $cword -eq 2 ]]; then
                COMPREPLY=($(compgen -W "save delete status" -- "$cur"))
            else
                _filedir
            fi
            ;;
        help)
            COMPREPLY=($(compgen -W "$commands" -- "$cur"))
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "$cur"))
            ;;
    esac
}

complete -F _lockmark lockmark
`

const zshCompletion = `#compdef lockmark

_lockmark() {
    local -a commands
    commands=(
        'encrypt:Encrypt a file into <file>.locked'
        'decrypt:Decrypt a .locked file'
        'seal:Encrypt text into an inline marker'
        'unseal:Replace inline markers with their plaintext'
        'hint:Show password hints of a protected file'
        'passwd:Change the password of a protected file'
        'diff:Compare a .locked file with its plaintext'
        'status:List protected files'
        'untrack:Drop a file from the index'
        'compact:Compact the index to reclaim disk space'
        'keyring:Manage passwords in OS keyring'
        'shell:Start an interactive session with a password cache'
        'help:Show help for a command'
        'completion:Generate shell completions'
    )

    _arguments -C \
        '1: :->command' \
        '*: :->args'

    case "$state" in
        command)
            _describe -t commands 'lockmark commands' commands
            ;;
        args)
            case "${words[2]}" in
                encrypt)
                    _arguments \
                        '--hint[Password hint stored with the envelope]:hint' \
                        '-r[Remove the plaintext after encrypting]' \
                        '--remove[Remove the plaintext after encrypting]' \
                        '*:file:_files'
                    ;;
                decrypt)
                    _arguments \
                        '--force[Overwrite local plaintext without asking]' \
                        '--keep-local[Keep the local plaintext on conflict]' \
                        '--keep-both[Keep local and decrypted versions]' \
                        '--stdout[Print plaintext instead of writing it]' \
                        '*:locked file:_files -g "*.locked"'
                    ;;
                seal)
                    _arguments \
                        '--hint[Password hint stored in the marker]:hint' \
                        '--hidden[Wrap the marker in comment tokens]' \
                        '--file[Append the marker to a file]:file:_files'
                    ;;
                unseal)
                    _arguments \
                        '-w[Rewrite the file in place]' \
                        '--write[Rewrite the file in place]' \
                        '*:file:_files'
                    ;;
                hint|passwd|diff|untrack)
                    _arguments '*:file:_files'
                    ;;
                shell)
                    _arguments \
                        '--scope[Cache scope]:scope:(file folder workspace)' \
                        '--timeout[Cache timeout in minutes]:minutes' \
                        '--no-cache[Start with the cache off]'
                    ;;
                keyring)
                    _arguments '1:subcommand:(save delete status)' '*:file:_files'
                    ;;
                help)
                    _describe -t commands 'lockmark commands' commands
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
            esac
            ;;
    esac
}

_lockmark "$@"
`

const fishCompletion = `# lockmark fish completions

set -l commands encrypt decrypt seal unseal hint passwd diff status untrack compact keyring shell help completion

complete -c lockmark -f

# Commands
complete -c lockmark -n "not __fish_seen_subcommand_from $commands" -a encrypt -d 'Encrypt a file'
complete -c lockmark -n "not __fish_seen_subcommand_from $commands" -a decrypt -d 'Decrypt a .locked file'
complete -c lockmark -n "not __fish_seen_subcommand_from $commands" -a seal -d 'Create an inline marker'
complete -c lockmark -n "not __fish_seen_subcommand_from $commands" -a unseal -d 'Decrypt inline markers'
complete -c lockmark -n "not __fish_seen_subcommand_from $commands" -a hint -d 'Show password hints'
complete -c lockmark -n "not __fish_seen_subcommand_from $commands" -a passwd -d 'Change file password'
complete -c lockmark -n "not __fish_seen_subcommand_from $commands" -a diff -d 'Compare with plaintext'
complete -c lockmark -n "not __fish_seen_subcommand_from $commands" -a status -d 'List protected files'
complete -c lockmark -n "not __fish_seen_subcommand_from $commands" -a untrack -d 'Drop a file from the index'
complete -c lockmark -n "not __fish_seen_subcommand_from $commands" -a compact -d 'Compact index'
complete -c lockmark -n "not __fish_seen_subcommand_from $commands" -a keyring -d 'Manage passwords in OS keyring'
complete -c lockmark -n "not __fish_seen_subcommand_from $commands" -a shell -d 'Interactive session'
complete -c lockmark -n "not __fish_seen_subcommand_from $commands" -a help -d 'Show help'
complete -c lockmark -n "not __fish_seen_subcommand_from $commands" -a completion -d 'Generate completions'

# encrypt flags and files
complete -c lockmark -n "__fish_seen_subcommand_from encrypt" -l hint -r -d 'Password hint'
complete -c lockmark -n "__fish_seen_subcommand_from encrypt" -s r -d 'Remove plaintext'
complete -c lockmark -n "__fish_seen_subcommand_from encrypt" -l remove -d 'Remove plaintext'
complete -c lockmark -n "__fish_seen_subcommand_from encrypt" -F

# decrypt flags
complete -c lockmark -n "__fish_seen_subcommand_from decrypt" -l force -d 'Overwrite local plaintext'
complete -c lockmark -n "__fish_seen_subcommand_from decrypt" -l keep-local -d 'Keep local version'
complete -c lockmark -n "__fish_seen_subcommand_from decrypt" -l keep-both -d 'Keep both versions'
complete -c lockmark -n "__fish_seen_subcommand_from decrypt" -l stdout -d 'Print plaintext'
complete -c lockmark -n "__fish_seen_subcommand_from decrypt" -F

# seal and unseal flags
complete -c lockmark -n "__fish_seen_subcommand_from seal" -l hint -r -d 'Password hint'
complete -c lockmark -n "__fish_seen_subcommand_from seal" -l hidden -d 'Wrap in comment tokens'
complete -c lockmark -n "__fish_seen_subcommand_from seal" -l file -r -F -d 'Append to file'
complete -c lockmark -n "__fish_seen_subcommand_from unseal" -s w -l write -d 'Rewrite in place'
complete -c lockmark -n "__fish_seen_subcommand_from unseal hint passwd diff untrack" -F

# shell flags
complete -c lockmark -n "__fish_seen_subcommand_from shell" -l scope -x -a "file folder workspace" -d 'Cache scope'
complete -c lockmark -n "__fish_seen_subcommand_from shell" -l timeout -x -d 'Cache timeout in minutes'
complete -c lockmark -n "__fish_seen_subcommand_from shell" -l no-cache -d 'Start with cache off'

# keyring subcommands
complete -c lockmark -n "__fish_seen_subcommand_from keyring" -a "save delete status"

# help completions
complete -c lockmark -n "__fish_seen_subcommand_from help" -a "$commands"

# completion completions
complete -c lockmark -n "__fish_seen_subcommand_from completion" -a "bash zsh fish"
`
