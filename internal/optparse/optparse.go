// Package optparse implements a declarative getopt-style parser: a
// table of short/long options (with clustering, attached-value short
// flags, and `=value` long flags), positional arguments, an optional
// subcommand positional that absorbs the rest of argv, and the GNU
// `--` convention. Used for the option table of
// `wayvnc serve`. Hand-built on the standard
// library (os.Args, strings) rather than a third-party flags package,
// since cobra/pflag's own parser doesn't support clustering and
// attached-value short options the way a getopt-style CLI needs.
package optparse

import (
	"fmt"
	"strings"
)

// Option is one declarative entry in an option table.
type Option struct {
	// Name is the key Result stores this option's value under.
	Name string
	// Short is the short flag letter, or 0 if this option has none.
	Short byte
	// Long is the long flag name (without leading "--"), or "" if none.
	Long string
	// TakesValue marks this as a value-bearing option (`-v val`, `-vval`,
	// `--long=val`, `--long val`) rather than a boolean switch.
	TakesValue bool
	// Required marks a value-bearing option whose absence is fatal.
	Required bool
}

// Spec is the full declarative table Parse consumes.
type Spec struct {
	Options []Option
	// Positionals names each positional argument slot, in order.
	Positionals []string
	// Subcommand, if true, means the first positional encountered after
	// all named Positionals are filled absorbs the rest of argv
	// (including further-looking-like-options tokens) into
	// Result.RemainingArgv, per the "subcommand positional".
	Subcommand bool
}

// Result is the parsed output of one Parse call.
type Result struct {
	Bools         map[string]bool
	Values        map[string]string
	Positionals   map[string]string
	RemainingArgv []string
}

func newResult() Result {
	return Result{
		Bools:       make(map[string]bool),
		Values:      make(map[string]string),
		Positionals: make(map[string]string),
	}
}

// Parse parses argv (argv[0] is the program name and is skipped, matching
// os.Args convention) against spec. Unknown options and missing required
// values are fatal.
func Parse(spec Spec, argv []string) (Result, error) {
	res := newResult()
	if len(argv) == 0 {
		return res, nil
	}

	byShort := make(map[byte]Option)
	byLong := make(map[string]Option)
	for _, o := range spec.Options {
		if o.Short != 0 {
			byShort[o.Short] = o
		}
		if o.Long != "" {
			byLong[o.Long] = o
		}
	}

	args := argv[1:]
	positionalIdx := 0
	optionsEnded := false

	i := 0
	for i < len(args) {
		tok := args[i]

		if !optionsEnded && tok == "--" {
			optionsEnded = true
			i++
			continue
		}

		if !optionsEnded && strings.HasPrefix(tok, "--") && len(tok) > 2 {
			if err := parseLong(tok, &res, byLong, args, &i); err != nil {
				return res, err
			}
			continue
		}

		if !optionsEnded && strings.HasPrefix(tok, "-") && len(tok) > 1 {
			if err := parseShortCluster(tok, &res, byShort, args, &i); err != nil {
				return res, err
			}
			continue
		}

		// Positional or subcommand token.
		if positionalIdx < len(spec.Positionals) {
			res.Positionals[spec.Positionals[positionalIdx]] = tok
			positionalIdx++
			i++
			continue
		}

		if spec.Subcommand {
			res.RemainingArgv = append(res.RemainingArgv, args[i:]...)
			return res, nil
		}

		return res, fmt.Errorf("optparse: unexpected positional argument %q", tok)
	}

	for _, o := range spec.Options {
		if o.Required && o.TakesValue {
			if _, ok := res.Values[o.Name]; !ok {
				return res, fmt.Errorf("optparse: missing required value for --%s", o.Long)
			}
		}
	}

	return res, nil
}

// parseLong handles one `--long`, `--long=value`, or `--long value` token.
func parseLong(tok string, res *Result, byLong map[string]Option, args []string, i *int) error {
	body := tok[2:]
	name, inlineValue, hasInline := strings.Cut(body, "=")

	opt, ok := byLong[name]
	if !ok {
		return fmt.Errorf("optparse: unknown option --%s", name)
	}

	if !opt.TakesValue {
		if hasInline {
			return fmt.Errorf("optparse: --%s does not take a value", name)
		}
		res.Bools[opt.Name] = true
		*i++
		return nil
	}

	if hasInline {
		res.Values[opt.Name] = inlineValue
		*i++
		return nil
	}

	if *i+1 >= len(args) {
		return fmt.Errorf("optparse: --%s requires a value", name)
	}
	res.Values[opt.Name] = args[*i+1]
	*i += 2
	return nil
}

// parseShortCluster handles `-a`, boolean clustering `-ab`, and
// attached-value short flags `-vfoo`.
func parseShortCluster(tok string, res *Result, byShort map[byte]Option, args []string, i *int) error {
	body := tok[1:]

	for j := 0; j < len(body); j++ {
		c := body[j]
		opt, ok := byShort[c]
		if !ok {
			return fmt.Errorf("optparse: unknown option -%c", c)
		}

		if !opt.TakesValue {
			res.Bools[opt.Name] = true
			continue
		}

		// Value-bearing: the rest of this token (if any) is the attached
		// value (-vfoo); otherwise the next argv token is (-v foo).
		if j+1 < len(body) {
			res.Values[opt.Name] = body[j+1:]
			*i++
			return nil
		}
		if *i+1 >= len(args) {
			return fmt.Errorf("optparse: -%c requires a value", c)
		}
		res.Values[opt.Name] = args[*i+1]
		*i += 2
		return nil
	}

	*i++
	return nil
}
