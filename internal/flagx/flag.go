// Package flagx lets several configuration layers share os.Args: each layer
// keeps only the flags it owns before handing them to a flag.FlagSet.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs returns the subset of args made of allowed flags and their
// values. Both "-f value" and "-f=value" forms are recognised; a following
// token that starts with "-" is never taken as a value.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]bool, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = true
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			continue
		}

		if name, _, hasValue := strings.Cut(arg, "="); hasValue {
			if allowed[name] {
				filtered = append(filtered, arg)
			}
			continue
		}

		if !allowed[arg] {
			continue
		}
		filtered = append(filtered, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}
	return filtered
}

// ConfigFile extracts the JSON config path given with -c or -config.
// The last occurrence wins; an empty string means no file.
func ConfigFile(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "path to JSON config file")
	fs.StringVar(&path, "c", "", "path to JSON config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config", "--config"}))

	return path
}

// JsonConfigFlags is ConfigFile applied to the process arguments.
func JsonConfigFlags() string {
	return ConfigFile(os.Args[1:])
}
