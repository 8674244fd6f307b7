package casefile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/casetrace/trace-console/internal/audit"
	"github.com/casetrace/trace-console/internal/bus"
	"github.com/casetrace/trace-console/internal/store"
)

// ExportResult reports what ExportMarkdown produced.
type ExportResult struct {
	Path     string
	Signed   bool
	Cases    int
	Warnings []string
}

// ExportMarkdown writes every case to a Markdown report. Stored fingerprints
// and signatures are embedded verbatim so a reader can recompute digests and
// re-verify signatures offline. With signing enabled the whole document is
// clearsigned as one unit; signing failure falls back to unsigned output
// with a warning.
func (s *Service) ExportMarkdown(ctx context.Context, outPath string) (ExportResult, error) {
	var res ExportResult
	tree, err := s.store.Load()
	if err != nil {
		return res, err
	}

	doc := renderMarkdown(tree, time.Now())

	settings := s.store.Settings()
	if settings.SigningOn() {
		signed, signErr := s.signer.Sign(ctx, doc, settings.SigningKey)
		if signErr != nil {
			res.Warnings = append(res.Warnings, "signing failed, export saved unsigned")
			s.logger.Printf("export saved unsigned: %v", signErr)
		} else {
			doc = signed
			res.Signed = true
		}
	}

	if outPath == "" {
		dir, err := s.store.ExportsDir()
		if err != nil {
			return res, err
		}
		outPath = filepath.Join(dir, fmt.Sprintf("trace_export_%s.md", time.Now().Format("20060102_150405")))
	}
	if err := os.WriteFile(outPath, []byte(doc), 0644); err != nil {
		return res, fmt.Errorf("failed to write export to %s: %w", outPath, err)
	}
	res.Path = outPath
	res.Cases = len(tree.Cases)

	s.record(ctx, audit.Entry{
		Action:     audit.ActionExportCreated,
		EntityType: "export",
		EntityID:   outPath,
		Details:    map[string]interface{}{"format": "markdown", "signed": res.Signed, "cases": res.Cases},
	}, bus.Event{
		Type:     bus.EventExportCreated,
		EntityID: outPath,
		Summary:  filepath.Base(outPath),
	})
	return res, nil
}

// ExportIOCs writes the aggregated indicators for the scope as tab-separated
// "type value count" lines. An empty outPath lands in the exports directory.
func (s *Service) ExportIOCs(ctx context.Context, sc Scope, outPath string) (string, int, error) {
	tree, err := s.store.Load()
	if err != nil {
		return "", 0, err
	}
	c, e, err := s.resolveScope(tree, sc)
	if err != nil {
		return "", 0, err
	}
	counts := tree.IOCCounts(c, e)

	var b strings.Builder
	for _, vc := range counts {
		fmt.Fprintf(&b, "%s\t%s\t%d\n", vc.Typ, vc.Value, vc.Count)
	}

	if outPath == "" {
		dir, err := s.store.ExportsDir()
		if err != nil {
			return "", 0, err
		}
		outPath = filepath.Join(dir, fmt.Sprintf("iocs_%s.txt", time.Now().Format("20060102_150405")))
	}
	if err := os.WriteFile(outPath, []byte(b.String()), 0644); err != nil {
		return "", 0, fmt.Errorf("failed to write IOC export to %s: %w", outPath, err)
	}

	s.record(ctx, audit.Entry{
		Action:     audit.ActionExportCreated,
		EntityType: "export",
		EntityID:   outPath,
		Details:    map[string]interface{}{"format": "iocs", "indicators": len(counts)},
	}, bus.Event{
		Type:     bus.EventExportCreated,
		EntityID: outPath,
		Summary:  filepath.Base(outPath),
	})
	return outPath, len(counts), nil
}

// renderMarkdown lays the whole tree out as reviewable Markdown.
func renderMarkdown(tree *store.Tree, now time.Time) string {
	var b strings.Builder
	b.WriteString("# Forensic Notes Export\n\n")
	fmt.Fprintf(&b, "Generated on: %s\n\n", now.Format(time.ANSIC))

	for ci := range tree.Cases {
		c := &tree.Cases[ci]
		fmt.Fprintf(&b, "## Case: %s\n", c.Number)
		if c.Name != "" {
			fmt.Fprintf(&b, "**Name:** %s\n", c.Name)
		}
		if c.Investigator != "" {
			fmt.Fprintf(&b, "**Investigator:** %s\n", c.Investigator)
		}
		fmt.Fprintf(&b, "**Case ID:** %s\n\n", c.ID)

		b.WriteString("### Case Notes\n")
		if len(c.Notes) == 0 {
			b.WriteString("_No notes._\n")
		}
		for ni := range c.Notes {
			writeNote(&b, &c.Notes[ni])
		}

		b.WriteString("\n### Evidence\n")
		if len(c.Evidence) == 0 {
			b.WriteString("_No evidence._\n")
		}
		for ei := range c.Evidence {
			e := &c.Evidence[ei]
			fmt.Fprintf(&b, "#### Evidence: %s\n", e.Name)
			if e.Description != "" {
				fmt.Fprintf(&b, "_%s_\n", e.Description)
			}
			fmt.Fprintf(&b, "**ID:** %s\n", e.ID)
			if h := e.Metadata["source_hash"]; h != "" {
				fmt.Fprintf(&b, "**Source Hash:** `%s`\n", h)
			}
			b.WriteString("\n")

			b.WriteString("##### Evidence Notes\n")
			if len(e.Notes) == 0 {
				b.WriteString("_No notes._\n")
			}
			for ni := range e.Notes {
				writeNote(&b, &e.Notes[ni])
			}
			b.WriteString("\n")
		}
		b.WriteString("---\n\n")
	}
	return b.String()
}

// writeNote renders one note as a bullet item: human timestamp, indented
// content, the fingerprint line, and the signature fenced verbatim.
func writeNote(b *strings.Builder, n *store.Note) {
	fmt.Fprintf(b, "- **%s**\n", n.Timestamp.Local().Format(time.ANSIC))
	b.WriteString("  - Content:\n")
	for _, line := range strings.Split(strings.TrimSuffix(n.Content, "\n"), "\n") {
		fmt.Fprintf(b, "    %s\n", line)
	}
	fmt.Fprintf(b, "  - SHA256 Hash (timestamp:content): `%s`\n", n.Hash)
	if n.Signature != "" {
		b.WriteString("  - **GPG Signature of Hash:**\n")
		b.WriteString("    ```\n")
		for _, line := range strings.Split(strings.TrimSuffix(n.Signature, "\n"), "\n") {
			fmt.Fprintf(b, "    %s\n", line)
		}
		b.WriteString("    ```\n")
	}
	b.WriteString("\n")
}
