package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"memebot/internal/config"

	"github.com/spf13/cobra"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit the configuration file",
	}
	cmd.AddCommand(configGetCmd(), configSetCmd())
	return cmd
}

func configGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print a config value by dotted key (e.g. imgflip.username)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadConfigDocument(resolveConfigPath())
			if err != nil {
				return err
			}
			val, ok := lookupKey(doc, args[0])
			if !ok {
				return fmt.Errorf("key not found: %s", args[0])
			}
			out, err := json.Marshal(val)
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

func configSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a config value by dotted key and save the file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := resolveConfigPath()
			doc, err := loadConfigDocument(path)
			if err != nil {
				return err
			}
			if err := setKey(doc, args[0], parseValue(args[1])); err != nil {
				return err
			}

			// Round-trip through the typed config so the result is
			// validated before it is written back.
			raw, err := json.Marshal(doc)
			if err != nil {
				return err
			}
			cfg := config.Defaults()
			if err := json.Unmarshal(raw, cfg); err != nil {
				return fmt.Errorf("value does not fit the config schema: %w", err)
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}

			data, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(config.ExpandPath(path), data, 0o644); err != nil {
				return err
			}
			fmt.Printf("%s = %s\n", args[0], args[1])
			return nil
		},
	}
}

// loadConfigDocument reads the raw config JSON without env expansion, so
// ${VAR} placeholders survive a get/set round trip.
func loadConfigDocument(path string) (map[string]any, error) {
	data, err := os.ReadFile(config.ExpandPath(path))
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}
	return doc, nil
}

func lookupKey(doc map[string]any, key string) (any, bool) {
	parts := strings.Split(key, ".")
	var cur any = doc
	for _, part := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func setKey(doc map[string]any, key string, value any) error {
	parts := strings.Split(key, ".")
	cur := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[part] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
	return nil
}

// parseValue interprets booleans and numbers, leaving everything else a
// string. Quoting a value forces it to stay a string.
func parseValue(raw string) any {
	if strings.HasPrefix(raw, `"`) && strings.HasSuffix(raw, `"`) && len(raw) >= 2 {
		return raw[1 : len(raw)-1]
	}
	switch raw {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
