package casefile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casetrace/trace-console/internal/store"
)

func TestExportMarkdownLayout(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, st.SaveSettings(store.Settings{}.WithSigning(false)))

	c, err := svc.CreateCase(ctx, "IR-7", "print server intrusion", "bob")
	require.NoError(t, err)
	noteRes, err := svc.AddNote(ctx, "first line\nsecond line", c.ID, "")
	require.NoError(t, err)
	ev, err := svc.AddEvidence(ctx, c.ID, "spool disk", "imaged on site")
	require.NoError(t, err)
	_, err = svc.SetEvidenceMeta(ctx, ev.Evidence.ID, "source_hash", "feedface")
	require.NoError(t, err)

	outPath := filepath.Join(t.TempDir(), "export.md")
	res, err := svc.ExportMarkdown(ctx, outPath)
	require.NoError(t, err)
	assert.Equal(t, outPath, res.Path)
	assert.False(t, res.Signed)
	assert.Equal(t, 1, res.Cases)

	raw, err := os.ReadFile(outPath)
	require.NoError(t, err)
	doc := string(raw)

	assert.True(t, strings.HasPrefix(doc, "# Forensic Notes Export\n\n"))
	assert.Contains(t, doc, "Generated on: ")
	assert.Contains(t, doc, "## Case: IR-7\n")
	assert.Contains(t, doc, "**Name:** print server intrusion\n")
	assert.Contains(t, doc, "**Investigator:** bob\n")
	assert.Contains(t, doc, "**Case ID:** "+c.ID+"\n")
	assert.Contains(t, doc, "### Case Notes\n")
	assert.Contains(t, doc, "    first line\n    second line\n")
	assert.Contains(t, doc, "  - SHA256 Hash (timestamp:content): `"+noteRes.Note.Hash+"`\n")
	assert.Contains(t, doc, "#### Evidence: spool disk\n")
	assert.Contains(t, doc, "_imaged on site_\n")
	assert.Contains(t, doc, "**Source Hash:** `feedface`\n")
	assert.Contains(t, doc, "##### Evidence Notes\n_No notes._\n")
	assert.Contains(t, doc, "---\n")
}

func TestExportMarkdownEmptySections(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, st.SaveSettings(store.Settings{}.WithSigning(false)))

	_, err := svc.CreateCase(ctx, "IR-0", "", "")
	require.NoError(t, err)

	outPath := filepath.Join(t.TempDir(), "export.md")
	_, err = svc.ExportMarkdown(ctx, outPath)
	require.NoError(t, err)

	raw, err := os.ReadFile(outPath)
	require.NoError(t, err)
	doc := string(raw)

	assert.Contains(t, doc, "### Case Notes\n_No notes._\n")
	assert.Contains(t, doc, "### Evidence\n_No evidence._\n")
	assert.NotContains(t, doc, "**Name:**")
	assert.NotContains(t, doc, "**Investigator:**")
}

func TestExportMarkdownEmbedsSignatureFence(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, st.SaveSettings(store.Settings{}.WithSigning(false)))

	sigBlock := "-----BEGIN PGP SIGNED MESSAGE-----\nHash: SHA256\n\nabc123\n-----BEGIN PGP SIGNATURE-----\nxyz\n-----END PGP SIGNATURE-----\n"
	require.NoError(t, st.Mutate(func(tree *store.Tree) error {
		c := store.NewCase("IR-9", "", "")
		n := store.NewNote(time.Now().UTC(), "signed observation")
		n.Signature = sigBlock
		c.Notes = append(c.Notes, n)
		tree.Cases = append(tree.Cases, c)
		return nil
	}))

	outPath := filepath.Join(t.TempDir(), "export.md")
	_, err := svc.ExportMarkdown(ctx, outPath)
	require.NoError(t, err)

	raw, err := os.ReadFile(outPath)
	require.NoError(t, err)
	doc := string(raw)

	assert.Contains(t, doc, "  - **GPG Signature of Hash:**\n")
	assert.Contains(t, doc, "    ```\n    -----BEGIN PGP SIGNED MESSAGE-----\n")
	assert.Contains(t, doc, "    -----END PGP SIGNATURE-----\n    ```\n")
}

func TestExportMarkdownSigningUnavailableWarns(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateCase(ctx, "IR-1", "", "")
	require.NoError(t, err)

	// Signing defaults on; the signer binary does not exist.
	res, err := svc.ExportMarkdown(ctx, filepath.Join(t.TempDir(), "export.md"))
	require.NoError(t, err)
	assert.False(t, res.Signed)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "unsigned")

	raw, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "# Forensic Notes Export"))
}

func TestExportMarkdownDefaultsToExportsDir(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, st.SaveSettings(store.Settings{}.WithSigning(false)))

	_, err := svc.CreateCase(ctx, "IR-1", "", "")
	require.NoError(t, err)

	res, err := svc.ExportMarkdown(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(st.Dir(), "exports"), filepath.Dir(res.Path))
	assert.True(t, strings.HasPrefix(filepath.Base(res.Path), "trace_export_"))
}

func TestExportIOCsTabSeparated(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, st.SaveSettings(store.Settings{}.WithSigning(false)))

	c, err := svc.CreateCase(ctx, "IR-1", "", "")
	require.NoError(t, err)
	_, err = svc.AddNote(ctx, "beacon to 10.0.0.8", c.ID, "")
	require.NoError(t, err)
	_, err = svc.AddNote(ctx, "again 10.0.0.8 and mail from ops@evil-corp.com", c.ID, "")
	require.NoError(t, err)

	outPath := filepath.Join(t.TempDir(), "iocs.txt")
	path, n, err := svc.ExportIOCs(ctx, Scope{All: true}, outPath)
	require.NoError(t, err)
	assert.Equal(t, outPath, path)
	assert.Equal(t, 2, n)

	raw, err := os.ReadFile(outPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ipv4\t10.0.0.8\t2", lines[0])
	assert.Equal(t, "email\tops@evil-corp.com\t1", lines[1])
}
