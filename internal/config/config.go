// Package config holds the command line plumbing shared by the service
// binaries. Flags take their defaults from the environment and may be
// overridden by a TOML file whose keys are flag names:
//
//	retry.max = 5
//
//	[http]
//	addr = ":9000"
//
// Flags given on the command line always win over the file. A .env file in
// the working directory is loaded at startup and only fills variables that
// are not already set.
package config

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

func init() {
	_ = godotenv.Load()
}

// FileFlag is the name of the flag that points at the TOML file.
const FileFlag = "config"

func GetEnv(key, fallback string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		value = fallback
	}
	return value
}

func GetEnvAsInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}

	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}

func UsageFor(fs *flag.FlagSet, short string) func() {
	return func() {
		w := fs.Output()
		fmt.Fprintf(w, "USAGE\n")
		fmt.Fprintf(w, "  %s\n", short)
		fmt.Fprintf(w, "\n")
		fmt.Fprintf(w, "FLAGS\n")
		tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
		fs.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(tw, "\t-%s %s\t%s\n", f.Name, f.DefValue, f.Usage)
		})
		tw.Flush()
		fmt.Fprintf(w, "\n")
	}
}

// Parse parses args into fs and then applies the file named by the -config
// flag, if fs defines one and it is set.
func Parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}

	f := fs.Lookup(FileFlag)
	if f == nil || f.Value.String() == "" {
		return nil
	}
	return Load(fs, f.Value.String())
}

// Load sets the flags of fs from the TOML file at path. Flags already set
// on the command line are left alone. Keys that name no flag are an error.
func Load(fs *flag.FlagSet, path string) error {
	var doc map[string]interface{}
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}

	values := map[string]string{}
	if err := flatten("", doc, values); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}

	explicit := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, name := range keys {
		if fs.Lookup(name) == nil {
			return fmt.Errorf("config %s: unknown key %q", path, name)
		}
		if explicit[name] || name == FileFlag {
			continue
		}
		if err := fs.Set(name, values[name]); err != nil {
			return fmt.Errorf("config %s: %s: %w", path, name, err)
		}
	}
	return nil
}

func flatten(prefix string, doc map[string]interface{}, out map[string]string) error {
	for k, v := range doc {
		name := k
		if prefix != "" {
			name = prefix + "." + k
		}

		switch v := v.(type) {
		case map[string]interface{}:
			if err := flatten(name, v, out); err != nil {
				return err
			}
		case string, bool, int64, float64:
			out[name] = fmt.Sprint(v)
		default:
			return fmt.Errorf("key %q: unsupported value %T", name, v)
		}
	}
	return nil
}
