/*
Command signer drives the attested signer from the shell.

	signer demo --payload hello --timestamp 1700000000000
	signer verify-json --pubkey <hex> --envelope response.json
	signer verify-bcs --pubkey <hex> --envelope response.json
	signer verify-attestation --pubkey <hex> --document doc.hex [--dev]

Configuration is read from the environment and from any --env-file given,
using the same variables as the shared library.
*/
package main
