package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kailas-cloud/manualrag/internal/domain"
)

// formFeed separates pages in pdftotext output.
const formFeed = '\f'

// readPages loads pages from a JSON array of {page, text} objects or from
// pdftotext output, where each form feed ends a page.
func readPages(path string) ([]domain.PageText, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	trimmed := bytes.TrimLeft(data, " \t\r\n\ufeff")
	if strings.EqualFold(filepath.Ext(path), ".json") || bytes.HasPrefix(trimmed, []byte("[")) {
		return parseJSONPages(trimmed)
	}
	return splitFormFeeds(string(data)), nil
}

func parseJSONPages(data []byte) ([]domain.PageText, error) {
	var pages []domain.PageText
	if err := json.Unmarshal(data, &pages); err != nil {
		return nil, fmt.Errorf("parse pages: %w", err)
	}
	for i := range pages {
		if pages[i].Page <= 0 {
			pages[i].Page = i + 1
		}
	}
	return pages, nil
}

// splitFormFeeds numbers pages from 1. The empty tail after a final form feed is not a page.
func splitFormFeeds(text string) []domain.PageText {
	parts := strings.Split(text, string(formFeed))
	if len(parts) > 1 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}

	pages := make([]domain.PageText, len(parts))
	for i, p := range parts {
		pages[i] = domain.PageText{Page: i + 1, Text: p}
	}
	return pages
}
