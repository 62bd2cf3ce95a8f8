// Command check-key runs the same text and image probes as the web page
// from a terminal and exits non-zero when any probe fails.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/troikatech/keycheck/pkg/ai"
	"github.com/troikatech/keycheck/pkg/credential"
	"github.com/troikatech/keycheck/pkg/env"
	"github.com/troikatech/keycheck/pkg/logger"
	"github.com/troikatech/keycheck/pkg/probe"
)

func main() {
	envFile := flag.String("env", ".env", "path to the .env file")
	skipImage := flag.Bool("skip-image", false, "skip the image probe (it is billed)")
	flag.Parse()

	cfg, err := env.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ config: %v\n", err)
		os.Exit(2)
	}

	if err := logger.Init(cfg.LogLevel, cfg.AppEnv); err != nil {
		fmt.Fprintf(os.Stderr, "❌ logger: %v\n", err)
		os.Exit(2)
	}
	defer logger.Sync()

	fmt.Println("🔍 OpenAI API Key Check")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	cred, err := credential.NewLoader(cfg.EnvFile).Load()
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ %s found: %s\n\n", credential.EnvKey, cred)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	probes := probe.NewService(
		probe.Config{
			TextModel:  cfg.TextModel,
			ImageModel: cfg.ImageModel,
			Timeout:    time.Duration(cfg.ProbeTimeoutMs) * time.Millisecond,
		},
		probe.OpenAIBackend(ai.ClientOptions{BaseURL: cfg.OpenAIBaseURL}, logger.Log),
		logger.Log,
	)

	failed := false

	fmt.Printf("1️⃣  Text API (%s)...\n", probes.TextModel())
	if !report(probes.RunText(ctx, cred)) {
		failed = true
	}

	if *skipImage {
		fmt.Println("2️⃣  Image API: ⏭️  skipped")
	} else {
		fmt.Printf("2️⃣  Image API (%s, %s, quality '%s')...\n", probes.ImageModel(), probe.ImageSize, probe.ImageQuality)
		if !report(probes.RunImage(ctx, cred)) {
			failed = true
		}
	}

	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	if failed {
		os.Exit(1)
	}
}

func report(r *probe.Result) bool {
	if r.OK() {
		if r.Probe == probe.Image {
			fmt.Printf("   ✅ SUCCESS: %d bytes of %s in %s\n\n", len(r.Image), r.ContentType, r.Latency.Round(time.Millisecond))
		} else {
			fmt.Printf("   ✅ SUCCESS in %s\n   📤 Response: %s\n\n", r.Latency.Round(time.Millisecond), r.Text)
		}
		return true
	}

	fmt.Printf("   ❌ FAILED (%s): %s\n", r.Failure.Kind, r.Failure.Message)
	fmt.Printf("%s\n\n", r.Failure.Detail)
	return false
}
