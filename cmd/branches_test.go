package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"pdfhistory/internal/config"
	"pdfhistory/internal/domain"
	"pdfhistory/internal/service"
)

func TestPrintBranches(t *testing.T) {
	groups := service.NewLineageIndex([]domain.FileVersionRecord{
		{ID: "r", Name: "doc.pdf", Size: 2048},
		{ID: "c1", Name: "doc.pdf", Size: 1536, ParentFileID: "r", OriginalFileID: "r", VersionNumber: 1,
			ToolChain: []domain.ToolOperation{{ToolName: "rotate"}}},
		{ID: "c2", Name: "doc.pdf", Size: 1024, ParentFileID: "c1", OriginalFileID: "r", VersionNumber: 2,
			ToolChain: []domain.ToolOperation{{ToolName: "rotate"}, {ToolName: "compress"}}},
		{ID: "solo", Name: "scan.pdf", Size: 3 << 20},
	}).GroupByOriginal()

	var buf bytes.Buffer
	printBranches(&buf, groups)
	require.Equal(t,
		"r\n  v2 c2  doc.pdf  1.0 KiB  (3 versions, rotate > compress)\n"+
			"solo\n  v0 solo  scan.pdf  3.0 MiB  (1 versions, original)\n",
		buf.String())

	buf.Reset()
	printBranches(&buf, nil)
	require.Equal(t, "no files\n", buf.String())
}

func TestSetupLogger(t *testing.T) {
	require.NoError(t, setupLogger(config.LogConfig{Level: "debug", Format: "json"}))
	require.NoError(t, setupLogger(config.LogConfig{Format: "console"}))
	require.Error(t, setupLogger(config.LogConfig{Level: "loud"}))
}
