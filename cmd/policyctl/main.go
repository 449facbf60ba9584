// Command policyctl loads and exercises a policy rule set outside of a
// running audio server, for authoring and debugging rule files.
package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	policy "github.com/community-ssu/pulseaudio-policy-enforcement"
	"github.com/community-ssu/pulseaudio-policy-enforcement/internal/fake"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policyctl",
		Short: "Inspect and validate audio routing policy rule sets",
	}
	cmd.AddCommand(validateCmd(), classifyCmd())
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <ruleset.toml>",
		Short: "Load a rule set and report any rejected rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := policy.LoadRuleSet(args[0])
			if err != nil {
				return err
			}
			logger := zap.NewNop()
			eng := policy.New(&fake.Host{}, logger)
			if err := rs.Apply(eng); err != nil {
				return err
			}
			fmt.Printf("ok: %d groups, %d sink rules, %d source rules, %d card rules, %d stream rules\n",
				len(eng.Groups()), len(rs.SinkRules), len(rs.SourceRules), len(rs.CardRules), len(rs.StreamRules))
			return nil
		},
	}
}

// fixture is the shape of the file passed to "classify": a rule set plus
// a handful of synthetic streams to run through it.
type fixture struct {
	RuleSet string          `toml:"ruleset"`
	Stream  []fixtureStream `toml:"stream"`
}

type fixtureStream struct {
	ClientName string            `toml:"client_name"`
	HasClient  bool              `toml:"has_client"`
	PID        int               `toml:"pid"`
	UID        int64             `toml:"uid"`
	Exe        string            `toml:"exe"`
	Properties map[string]string `toml:"properties"`
}

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <fixture.toml>",
		Short: "Classify synthetic streams described in a fixture file against a rule set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var fx fixture
			if _, err := toml.DecodeFile(args[0], &fx); err != nil {
				return fmt.Errorf("policyctl: loading fixture %s: %w", args[0], err)
			}
			rs, err := policy.LoadRuleSet(fx.RuleSet)
			if err != nil {
				return err
			}

			logger := zap.NewNop()
			eng := policy.New(&fake.Host{}, logger)
			if err := rs.Apply(eng); err != nil {
				return err
			}

			for i, fs := range fx.Stream {
				s := fake.Stream{
					IndexValue:      uint32(i),
					PropertiesValue: fake.Props(fs.Properties),
				}
				if fs.HasClient {
					s.ClientValue = &fake.Client{
						PIDValue:  fs.PID,
						NameValue: fs.ClientName,
						UIDValue:  fs.UID,
						ExeValue:  fs.Exe,
					}
				}
				group := eng.ClassifyStream(s)
				fmt.Printf("stream[%d] client=%q -> group=%q\n", i, fs.ClientName, group)
			}
			return nil
		},
	}
}
