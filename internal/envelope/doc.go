// Package envelope implements the whole-file encrypted record.
//
// An envelope is a JSON document:
//
//	{
//	  "version": "1.0",
//	  "hint": "optional",
//	  "ciphertext": "<base64>",
//	  "salt": "<base64, 16 bytes>",
//	  "iv": "<base64, 16 bytes>",
//	  "authTag": "<base64, 16 bytes>"
//	}
//
// Unknown versions are rejected rather than guessed at.
package envelope
