package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"spark/launcher"
	"spark/patch"

	"github.com/shirou/gopsutil/v3/process"
)

func runLaunch(args []string) int {
	fs := flag.NewFlagSet("launch", flag.ExitOnError)
	dir := configFlag(fs)
	exe := fs.String("exe", "", "Client executable (default from settings)")
	version := fs.String("version", "", "Profile name, disables auto-detection")
	host := fs.String("host", "", "Server hostname to redirect to (default from settings)")
	port := fs.Int("port", 0, "Server port to redirect to (default from settings)")
	noRedirect := fs.Bool("no-redirect", false, "Do not redirect the client")
	noSkipIntro := fs.Bool("no-skip-intro", false, "Keep the intro video")
	single := fs.Bool("single-instance", false, "Keep the single instance check")
	walls := fs.Bool("hide-walls", false, "Hide walls")
	verify := fs.Bool("verify", false, "Check patch addresses against the PE sections before launching")
	killOnFailure := fs.Bool("kill-on-failure", false, "Terminate the client instead of resuming it when patching fails")
	save := fs.Bool("save", false, "Store the resulting settings")
	fs.Parse(args)

	store, settings, profiles := loadConfig(*dir)

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "exe":
			settings.ExecutablePath = *exe
		case "version":
			settings.VersionName = *version
			settings.AutoDetect = false
		case "host":
			settings.Hostname = *host
		case "port":
			settings.Port = *port
		case "no-redirect":
			settings.Redirect = !*noRedirect
		case "no-skip-intro":
			settings.SkipIntro = !*noSkipIntro
		case "single-instance":
			settings.AllowMultipleInstances = !*single
		case "hide-walls":
			settings.HideWalls = *walls
		}
	})

	if settings.Port < 0 || settings.Port > 0xFFFF {
		fmt.Printf("Error: port %d out of range\n", settings.Port)
		return 2
	}

	if *save {
		if err := store.SaveSettings(settings); err != nil {
			fmt.Printf("Warning: %v\n", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	o := launcher.New().Launch(ctx, launcher.LaunchRequest{
		ExecutablePath: settings.ExecutablePath,
		Profiles:       profiles,
		AutoDetect:     settings.AutoDetect,
		VersionName:    settings.VersionName,
		Hostname:       settings.Hostname,
		Port:           uint16(settings.Port),
		Toggles: patch.Toggles{
			Redirect:               patch.Redirect{Enabled: settings.Redirect},
			SkipIntro:              settings.SkipIntro,
			AllowMultipleInstances: settings.AllowMultipleInstances,
			HideWalls:              settings.HideWalls,
		},
		Args:                    fs.Args(),
		VerifyImage:             *verify,
		SuppressResumeOnFailure: *killOnFailure,
	})

	code := printOutcome(o)
	for _, w := range o.Applied {
		fmt.Printf("  patched %-16s at %s (%d bytes)\n", w.Toggle, w.Address.ToString(), len(w.Bytes))
	}
	if o.PID != 0 {
		reportProcess(int32(o.PID))
	}
	return code
}

// reportProcess prints what the OS says about the launched client
func reportProcess(pid int32) {
	proc, err := process.NewProcess(pid)
	if err != nil {
		fmt.Printf("  process %d is no longer running\n", pid)
		return
	}

	name, _ := proc.Name()
	running, _ := proc.IsRunning()
	fmt.Printf("  process %d (%s) running: %v", pid, name, running)

	if created, err := proc.CreateTime(); err == nil {
		fmt.Printf(", started %s", time.UnixMilli(created).Format(time.TimeOnly))
	}
	fmt.Println()
}
