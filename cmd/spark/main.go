package main

import (
	"flag"
	"fmt"
	"os"

	"spark/config"
	"spark/launcher"
	"spark/profile"
)

const usage = `usage: spark <command> [flags]

commands:
  launch    start the client suspended, patch it and let it run
  test      ask a server whether it accepts a client version
  detect    fingerprint an executable and match it to a profile
  inspect   show the PE sections of an executable and check a profile against them
  profiles  list the profile catalog

run "spark <command> -h" for the flags of a command
arguments after "spark launch [flags] --" are passed to the client
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(2)
	}

	var code int
	switch os.Args[1] {
	case "launch":
		code = runLaunch(os.Args[2:])
	case "test":
		code = runTest(os.Args[2:])
	case "detect":
		code = runDetect(os.Args[2:])
	case "inspect":
		code = runInspect(os.Args[2:])
	case "profiles":
		code = runProfiles(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Printf("Error: unknown command %q\n\n%s", os.Args[1], usage)
		code = 2
	}

	os.Exit(code)
}

// loadConfig opens the store in dir and reads settings and profiles.
// Load errors are reported and the defaults used.
func loadConfig(dir string) (*config.Store, config.Settings, []*profile.Profile) {
	store := config.NewStore(dir)

	settings, err := store.LoadSettings()
	if err != nil {
		fmt.Printf("Warning: %v, using default settings\n", err)
	}

	profiles, err := store.LoadProfiles()
	if err != nil {
		fmt.Printf("Warning: %v, using default profiles\n", err)
	}

	return store, settings, profiles
}

func configFlag(fs *flag.FlagSet) *string {
	return fs.String("config", config.DefaultDir(), "Directory holding settings.json and versions.json")
}

func printOutcome(o launcher.Outcome) int {
	fmt.Printf("%s\n  %s\n", o.Title, o.Message)
	if o.Detail != "" {
		fmt.Printf("  %s\n", o.Detail)
	}
	if o.OK() {
		return 0
	}
	return 1
}
