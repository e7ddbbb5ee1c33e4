package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"tee-signer/attestation"
	"tee-signer/intent"
	"tee-signer/keypair"
	"tee-signer/shared"
	"tee-signer/signer"

	"github.com/urfave/cli/v2"
)

var flagEnvFile *cli.StringSliceFlag = &cli.StringSliceFlag{
	Name:  "env-file",
	Usage: "Optional .env files loaded before reading configuration",
}
var flagPayload *cli.StringFlag = &cli.StringFlag{
	Name:  "payload",
	Value: "hello",
	Usage: "Payload bytes to sign, as a UTF-8 string",
}
var flagPayloadHex *cli.StringFlag = &cli.StringFlag{
	Name:  "payload-hex",
	Usage: "Payload bytes to sign, hex encoded. Overrides --payload",
}
var flagTimestamp *cli.Uint64Flag = &cli.Uint64Flag{
	Name:  "timestamp",
	Value: 1700000000000,
	Usage: "Timestamp in milliseconds recorded in the intent message",
}
var flagIntent *cli.UintFlag = &cli.UintFlag{
	Name:  "intent",
	Value: 0,
	Usage: "Intent scope code (0 = ProcessData)",
}
var flagPubkey *cli.StringFlag = &cli.StringFlag{
	Name:     "pubkey",
	Required: true,
	Usage:    "Ed25519 public key, 64 hex chars",
}
var flagEnvelope *cli.StringFlag = &cli.StringFlag{
	Name:     "envelope",
	Required: true,
	Usage:    "Path to a signed JSON envelope, or - for stdin",
}
var flagDocument *cli.StringFlag = &cli.StringFlag{
	Name:     "document",
	Required: true,
	Usage:    "Path to a hex encoded attestation document, or - for stdin",
}
var flagDev *cli.BoolFlag = &cli.BoolFlag{
	Name:  "dev",
	Usage: "Only check the key binding; skip certificate chain validation",
}

const usage string = "Create ephemeral keys, sign intent messages and check attestation bindings"

func main() {
	app := &cli.App{
		Name:           "signer",
		Usage:          usage,
		DefaultCommand: "demo",
		Flags: []cli.Flag{
			flagEnvFile,
		},
		Commands: []*cli.Command{
			{
				Name:  "demo",
				Usage: "Run a full keypair lifecycle and print every boundary result",
				Flags: []cli.Flag{
					flagPayload,
					flagPayloadHex,
					flagTimestamp,
					flagIntent,
				},
				Action: func(cCtx *cli.Context) error {
					svc, err := newService(cCtx)
					if err != nil {
						return err
					}
					payload, err := payloadFromFlags(cCtx)
					if err != nil {
						return err
					}
					code, err := intentFromFlags(cCtx)
					if err != nil {
						return err
					}
					return runDemo(cCtx.App.Writer, svc, payload, cCtx.Uint64(flagTimestamp.Name), code)
				},
			},
			{
				Name:  "verify-json",
				Usage: "Verify a structured signed response",
				Flags: []cli.Flag{
					flagPubkey,
					flagEnvelope,
				},
				Action: func(cCtx *cli.Context) error {
					pub, doc, err := readVerifyInputs(cCtx, flagEnvelope.Name)
					if err != nil {
						return err
					}
					return verifyStructured(cCtx.App.Writer, pub, doc)
				},
			},
			{
				Name:  "verify-bcs",
				Usage: "Verify a flat signed response carrying hex intent bytes",
				Flags: []cli.Flag{
					flagPubkey,
					flagEnvelope,
				},
				Action: func(cCtx *cli.Context) error {
					pub, doc, err := readVerifyInputs(cCtx, flagEnvelope.Name)
					if err != nil {
						return err
					}
					return verifyFlat(cCtx.App.Writer, pub, doc)
				},
			},
			{
				Name:  "verify-attestation",
				Usage: "Check that an attestation document binds the given public key",
				Flags: []cli.Flag{
					flagPubkey,
					flagDocument,
					flagDev,
				},
				Action: func(cCtx *cli.Context) error {
					pub, doc, err := readVerifyInputs(cCtx, flagDocument.Name)
					if err != nil {
						return err
					}
					raw, err := shared.DecodeHex(string(doc))
					if err != nil {
						return fmt.Errorf("could not decode attestation document: %w", err)
					}
					return verifyAttestation(cCtx.App.Writer, pub, raw, cCtx.Bool(flagDev.Name))
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newService(cCtx *cli.Context) (*signer.Service, error) {
	cfg, err := shared.LoadConfig("signer-cli", cCtx.StringSlice(flagEnvFile.Name)...)
	if err != nil {
		return nil, fmt.Errorf("could not load configuration: %w", err)
	}
	logger, err := shared.NewLoggerFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("could not create logger: %w", err)
	}
	return signer.NewFromConfig(cfg, logger), nil
}

func payloadFromFlags(cCtx *cli.Context) ([]byte, error) {
	if h := cCtx.String(flagPayloadHex.Name); h != "" {
		b, err := shared.DecodeHex(h)
		if err != nil {
			return nil, fmt.Errorf("could not decode payload: %w", err)
		}
		return b, nil
	}
	return []byte(cCtx.String(flagPayload.Name)), nil
}

func intentFromFlags(cCtx *cli.Context) (uint8, error) {
	code := cCtx.Uint(flagIntent.Name)
	if code > 0xff {
		return 0, fmt.Errorf("intent code %d does not fit in a byte", code)
	}
	return uint8(code), nil
}

func readVerifyInputs(cCtx *cli.Context, pathFlag string) ([]byte, []byte, error) {
	pub, err := shared.DecodeHex(cCtx.String(flagPubkey.Name))
	if err != nil {
		return nil, nil, fmt.Errorf("could not decode public key: %w", err)
	}
	doc, err := readInput(cCtx.App.Reader, cCtx.String(pathFlag))
	if err != nil {
		return nil, nil, err
	}
	return pub, doc, nil
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}
	return b, nil
}

// runDemo walks one handle through its lifecycle. The handle is destroyed on
// every path.
func runDemo(w io.Writer, svc *signer.Service, payload []byte, timestampMs uint64, code uint8) error {
	h := svc.CreateKeypair()
	if h == keypair.NullHandle {
		return fmt.Errorf("keypair generation failed")
	}
	defer svc.DestroyKeypair(h)

	pubHex := svc.PublicKeyHex(h)
	fmt.Fprintf(w, "public key:  %s\n", pubHex)
	fmt.Fprintf(w, "address:     %s\n", svc.PublicKeyAddress(h))

	if doc := svc.RequestAttestation(h); doc != "" {
		fmt.Fprintf(w, "attestation: %d bytes\n", len(doc)/2)
	} else {
		fmt.Fprintln(w, "attestation: unavailable")
	}

	structured := svc.SignIntentStructured(h, payload, timestampMs, code)
	flat := svc.SignIntentFlat(h, payload, timestampMs, code)
	if structured == "" || flat == "" {
		return fmt.Errorf("signing failed for intent code %d", code)
	}
	fmt.Fprintf(w, "json:        %s\n", structured)
	fmt.Fprintf(w, "bcs:         %s\n", flat)

	pub, err := hex.DecodeString(pubHex)
	if err != nil {
		return err
	}
	if err := verifyStructured(w, pub, []byte(structured)); err != nil {
		return err
	}
	return verifyFlat(w, pub, []byte(flat))
}

func verifyStructured(w io.Writer, pub, doc []byte) error {
	resp, err := intent.ParseSignedResponse(doc)
	if err != nil {
		return err
	}
	if err := intent.VerifyMessage(pub, resp); err != nil {
		return err
	}
	fmt.Fprintf(w, "structured signature valid (intent %s, timestamp %d, %d payload bytes)\n",
		resp.Response.Intent, resp.Response.TimestampMs, len(resp.Response.Data))
	return nil
}

func verifyFlat(w io.Writer, pub, doc []byte) error {
	resp, err := intent.ParseSignedBCSResponse(doc)
	if err != nil {
		return err
	}
	msg, err := intent.VerifyFlat(pub, resp)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "flat signature valid (intent %s, timestamp %d, %d payload bytes)\n",
		msg.Intent, msg.TimestampMs, len(msg.Data))
	return nil
}

func verifyAttestation(w io.Writer, pub, raw []byte, dev bool) error {
	var (
		doc *attestation.Document
		err error
	)
	if dev {
		doc, err = attestation.CheckBinding(raw, pub)
	} else {
		doc, err = attestation.VerifyBinding(raw, pub)
	}
	if err != nil {
		return fmt.Errorf("attestation verification failed: %w", err)
	}

	summary, err := json.Marshal(map[string]any{
		"module_id": doc.ModuleID,
		"issued_at": doc.IssuedAt(),
		"pcrs":      len(doc.PCRs),
		"digest":    doc.Digest,
	})
	if err != nil {
		return fmt.Errorf("could not encode attestation summary: %w", err)
	}
	fmt.Fprintln(w, string(summary))
	fmt.Fprintln(w, "attestation binds "+hex.EncodeToString(pub))
	return nil
}
