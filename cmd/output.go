package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/program-extractor/internal/model"
)

// writeProfile encodes p as "json" or "yaml".
func writeProfile(w io.Writer, p *model.BusinessProfile, format string) error {
	switch format {
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(p); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return enc.Close()
	}
	return eris.Errorf("unknown output format %q", format)
}

// writeProfileFile writes p to path, or to stdout when path is empty.
func writeProfileFile(path string, p *model.BusinessProfile, format string) error {
	if path == "" {
		return writeProfile(os.Stdout, p, format)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	if err := writeProfile(f, p, format); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
