// otpdev issues a one-time passcode and verifies it interactively; for local
// testing of the challenge engine and mail configuration.
// With OTP_RETURN_TO_CLIENT=true no mailbox is needed: the code is printed locally.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"lead-console/backend/internal/config"
	"lead-console/backend/internal/devcode"
	"lead-console/backend/internal/mail"
	"lead-console/backend/internal/otp/domain"
	"lead-console/backend/internal/otp/service"
	"lead-console/backend/internal/otp/store"
	"lead-console/backend/internal/telemetry"
	otelsetup "lead-console/backend/internal/telemetry/otel"
)

// discardSender drops messages; used in dev code mode where the code is read
// from the dev store instead of a mailbox.
type discardSender struct{}

func (discardSender) Send(ctx context.Context, to, subject, htmlBody string) error { return nil }

func main() {
	to := flag.String("to", "", "destination email address")
	subjectID := flag.String("subject", "dev-user", "subject identity to bind the challenge to")
	name := flag.String("name", "", "recipient display name")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *to == "" && !cfg.OTPReturnToClient {
		log.Fatal("otpdev: -to is required unless OTP_RETURN_TO_CLIENT=true")
	}

	ctx := context.Background()
	providers, err := otelsetup.NewProviders(ctx, cfg.OTLPEndpoint, "lead-console-otpdev", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), telemetry.ShutdownDrainDuration)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	metrics, err := telemetry.NewMetrics(providers.MeterProvider)
	if err != nil {
		log.Fatalf("telemetry: metrics: %v", err)
	}
	emitter := otelsetup.NewEventEmitter(providers.LoggerProvider)

	var sender service.Sender
	var dev *devcode.MemoryStore
	if cfg.OTPReturnToClient {
		sender = discardSender{}
		dev = devcode.NewMemoryStore()
	} else if cfg.MailProvider == "smtp" {
		sender = mail.NewSMTPClient(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
	} else {
		sender = mail.NewAPIClient(cfg.MailAPIKey, cfg.MailAPIBaseURL, cfg.MailFrom)
	}

	opts := []service.Option{
		service.WithTTL(cfg.TTL()),
		service.WithMaxAttempts(cfg.OTPMaxAttempts),
		service.WithEventEmitter(emitter),
		service.WithMetrics(metrics),
	}
	if dev != nil {
		opts = append(opts, service.WithDevCodeStore(dev))
	}
	svc := service.New(domain.PurposeLogin2FA, store.NewMemoryStore(), sender, opts...)

	issueCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = svc.Issue(issueCtx, *subjectID, *to, *name)
	cancel()
	if err != nil {
		if errors.Is(err, service.ErrDispatchFailed) {
			log.Fatalf("otpdev: could not send code: %v", err)
		}
		log.Fatalf("otpdev: issue: %v", err)
	}
	if dev != nil {
		if code, ok := dev.Get(ctx, store.Key(domain.PurposeLogin2FA, *subjectID)); ok {
			fmt.Printf("dev code (not sent): %s\n", code)
		}
	} else {
		fmt.Printf("code sent to %s\n", *to)
	}

	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("enter code (%d attempts left): ", svc.RemainingAttempts(ctx, *subjectID))
		if !in.Scan() {
			return
		}
		res := svc.Verify(ctx, *subjectID, strings.TrimSpace(in.Text()))
		switch res.Outcome {
		case service.OutcomeVerified:
			fmt.Println("verified")
			return
		case service.OutcomeInvalidCode:
			fmt.Printf("incorrect code, %d attempts left\n", res.RemainingAttempts)
		case service.OutcomeExpired:
			fmt.Println("code expired, request a new one")
			os.Exit(1)
		case service.OutcomeAttemptsExhausted:
			fmt.Println("too many attempts, request a new code")
			os.Exit(1)
		case service.OutcomeNoActiveChallenge:
			fmt.Println("no active code, request a new one")
			os.Exit(1)
		}
	}
}
