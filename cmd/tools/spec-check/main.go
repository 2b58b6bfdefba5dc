// cmd/tools/spec-check/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"shopping-agent-gateway/internal/common/logger"
	intentrouter "shopping-agent-gateway/internal/gateway/intent-router"
	schemacheck "shopping-agent-gateway/internal/gateway/schema-check"
	typeregistry "shopping-agent-gateway/internal/gateway/type-registry"
	"shopping-agent-gateway/pkg/registry"
)

var specPath string

func main() {
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	showCmd := flag.NewFlagSet("show", flag.ExitOnError)
	bumpCmd := flag.NewFlagSet("bump", flag.ExitOnError)

	for _, fs := range []*flag.FlagSet{validateCmd, showCmd, bumpCmd} {
		fs.StringVar(&specPath, "path", "pkg/registry/agent-spec.json", "Path to the agent spec file")
	}
	version := bumpCmd.String("version", "", "New spec version (e.g., 1.1.0)")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "validate":
		validateCmd.Parse(os.Args[2:])
		if err := validateSpec(); err != nil {
			fmt.Printf("Spec validation failed: %v\n", err)
			os.Exit(1)
		}

	case "show":
		showCmd.Parse(os.Args[2:])
		if err := showSpec(); err != nil {
			fmt.Printf("Error reading spec: %v\n", err)
			os.Exit(1)
		}

	case "bump":
		bumpCmd.Parse(os.Args[2:])
		if *version == "" {
			fmt.Println("Error: version is required for bump.")
			bumpCmd.Usage()
			os.Exit(1)
		}
		if err := bumpSpec(*version); err != nil {
			fmt.Printf("Error bumping spec: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Spec version set to %s\n", *version)

	case "help":
		fallthrough
	default:
		help()
	}
}

// validateSpec runs the same consistency check the gateway runs at startup
// and prints every mismatch.
func validateSpec() error {
	spec, err := registry.Load(specPath)
	if err != nil {
		return fmt.Errorf("failed to load spec: %w", err)
	}

	router := intentrouter.NewRouter(nil, intentrouter.NewConsumerClassifier(), intentrouter.NewSellerClassifier(), logger.NewNoOpLogger())
	report := schemacheck.New(spec, typeregistry.New(), router, logger.NewNoOpLogger()).Check()
	if !report.OK() {
		for _, m := range report.Mismatches {
			fmt.Printf("  - %s\n", m)
		}
		return fmt.Errorf("%d mismatches", len(report.Mismatches))
	}

	fmt.Printf("Spec validation passed. Version %s, %d tools, %d response types, %d probes.\n",
		spec.Version, len(spec.Tools.Enum), len(spec.Responses), report.Probes)
	return nil
}

func showSpec() error {
	spec, err := registry.Load(specPath)
	if err != nil {
		return fmt.Errorf("failed to load spec: %w", err)
	}

	fmt.Printf("Version:      %s (updated %s)\n", spec.Version, spec.LastUpdated)
	fmt.Printf("Default agent: %s\n", spec.DefaultAgent)
	fmt.Println("Agents:")
	for _, a := range spec.Agents {
		fmt.Printf("  %-20s %-9s %v\n", a.ID, a.Audience, a.Intents)
	}
	fmt.Printf("Consumer intents: %v\n", spec.Intents.Consumer)
	fmt.Printf("Seller intents:   %v\n", spec.Intents.Seller)
	tools := append([]string(nil), spec.Tools.Enum...)
	sort.Strings(tools)
	fmt.Printf("Tools:          %v\n", tools)
	fmt.Printf("Response types: %v\n", spec.ResponseTypes())
	return nil
}

func bumpSpec(version string) error {
	spec, err := registry.Load(specPath)
	if err != nil {
		return fmt.Errorf("failed to load spec: %w", err)
	}
	spec.Version = version
	spec.LastUpdated = time.Now().Format(time.RFC3339)
	return saveSpec(spec, specPath)
}

// saveSpec handles saving the spec to file
func saveSpec(spec *registry.AgentSpec, path string) error {
	data, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal spec: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write spec file: %w", err)
	}
	return nil
}

func help() {
	fmt.Print(`
Usage: spec-check <command> [flags]

Commands:
  validate Check the agent spec against the gateway's executable contract
  show     Print agents, intents, tools and response types
  bump     Set the spec version and its lastUpdated stamp
  help     Show this help message

Examples:
  spec-check validate -path pkg/registry/agent-spec.json
  spec-check show
  spec-check bump -version 1.1.0

Use 'spec-check <command> -h' for more information about a command.
`)
}
