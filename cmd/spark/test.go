package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"spark/detect"
	"spark/launcher"
)

func runTest(args []string) int {
	fs := flag.NewFlagSet("test", flag.ExitOnError)
	dir := configFlag(fs)
	host := fs.String("host", "", "Server hostname (default from settings)")
	port := fs.Int("port", 0, "Server port (default from settings)")
	version := fs.String("version", "", "Profile whose version code to present (default from settings)")
	code := fs.Int("code", 0, "Version code to present, overrides -version")
	timeout := fs.Duration("timeout", 10*time.Second, "Timeout per attempt")
	retry := fs.Bool("retry", false, "Ask whether to retry after a failed attempt")
	fs.Parse(args)

	_, settings, profiles := loadConfig(*dir)

	if *host == "" {
		*host = settings.Hostname
	}
	if *port == 0 {
		*port = settings.Port
	}
	if *port <= 0 || *port > 0xFFFF {
		fmt.Printf("Error: port %d out of range\n", *port)
		return 2
	}

	versionCode := *code
	if versionCode == 0 {
		name := *version
		if name == "" {
			name = settings.VersionName
		}

		p := detect.ByName(name, profiles)
		if p == nil && name == "" && settings.AutoDetect {
			p, _ = detect.ByFingerprint(settings.ExecutablePath, profiles)
		}
		if p == nil {
			fmt.Println("Error: no version to present, use -code or -version")
			return 2
		}
		versionCode = p.VersionCode()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var decide launcher.RetryDecision
	if *retry {
		decide = promptRetry(bufio.NewScanner(os.Stdin))
	}

	fmt.Printf("Testing %s:%d with version %d...\n", *host, *port, versionCode)

	o := <-launcher.New().TestConnectionAsync(ctx, launcher.ConnectionRequest{
		Hostname:    *host,
		Port:        uint16(*port),
		VersionCode: versionCode,
		Timeout:     *timeout,
	}, decide)

	return printOutcome(o)
}

func promptRetry(in *bufio.Scanner) launcher.RetryDecision {
	return func(o launcher.Outcome) bool {
		printOutcome(o)
		fmt.Print("Retry? [y/N] ")
		if !in.Scan() {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(in.Text()))
		return answer == "y" || answer == "yes"
	}
}
