package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/marcelsud/mes-webhooks/config"
	"github.com/marcelsud/mes-webhooks/endpoints"
	"github.com/marcelsud/mes-webhooks/internal/http/chi"
	"github.com/marcelsud/mes-webhooks/webhook/deadletter"
	"github.com/marcelsud/mes-webhooks/webhook/delivery"
	"github.com/marcelsud/mes-webhooks/webhook/dispatch"
	"github.com/marcelsud/mes-webhooks/webhook/health"
	"github.com/marcelsud/mes-webhooks/webhook/signature"
	"github.com/marcelsud/mes-webhooks/webhook/validation"
)

/* cli - helper commands for integrators
 *   send-test <url> [secret]              fire a test webhook at a receiver
 *   sign <secret> <file>                  print the signature header for a payload file
 *   verify <secret> <signature> <file>    check a received signature, exit 1 on mismatch
 */

const usage = `usage:
  cli send-test <url> [secret]
  cli sign <secret> <file>
  cli verify <secret> <signature> <file>`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch args := os.Args[2:]; os.Args[1] {
	case "send-test":
		err = sendTest(args)
	case "sign":
		err = sign(args)
	case "verify":
		err = verify(args)
	default:
		err = fmt.Errorf("unknown command %q\n%s", os.Args[1], usage)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func sendTest(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("send-test needs a url\n%s", usage)
	}
	secret := ""
	if len(args) > 1 {
		secret = args[1]
	}

	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}
	logger := chi.NewLogger(cfg.LogLevel, false)

	var validatorOpts []validation.Option
	if cfg.AllowPrivateNetworks {
		validatorOpts = append(validatorOpts, validation.AllowPrivateNetworks())
	}
	tracker := health.NewTracker(nil)
	engine := delivery.New(tracker, nil, nil, logger,
		delivery.WithHTTPClient(delivery.NewHTTPClient(!cfg.AllowPrivateNetworks)),
		delivery.WithURLValidator(validation.NewURLValidator(validatorOpts...)),
		delivery.WithTimeout(cfg.GetWebhookTimeout()),
	)
	dispatcher := dispatch.NewDispatcher(endpoints.NewLoader(), engine, nil, logger)
	defer dispatcher.Close()
	s := dispatch.NewService(dispatcher, engine, tracker, deadletter.New(), logger)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GetWebhookTimeout()+5*time.Second)
	defer cancel()
	result := s.SendTestWebhook(ctx, args[0], secret)

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Println(string(out))
	if !result.Success {
		return fmt.Errorf("test webhook %s", result.State)
	}
	return nil
}

func sign(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("sign needs a secret and a file\n%s", usage)
	}
	body, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("reading payload: %w", err)
	}
	fmt.Printf("%s: %s\n", signature.HeaderName, signature.Sign(body, args[0]))
	return nil
}

func verify(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("verify needs a secret, a signature and a file\n%s", usage)
	}
	if _, err := signature.ParseHeader(args[1]); err != nil {
		return err
	}
	body, err := os.ReadFile(args[2])
	if err != nil {
		return fmt.Errorf("reading payload: %w", err)
	}
	if !signature.Verify(body, args[1], args[0]) {
		return fmt.Errorf("signature mismatch")
	}
	fmt.Println("signature valid")
	return nil
}
