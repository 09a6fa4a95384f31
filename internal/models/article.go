package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// DigestURL is the url of the single sentinel row that holds the digest.
const DigestURL = "DIGEST"

// Link is an anchor collected from a listing page.
type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// ClassifiedItem is one link the classifier judged to be real news.
// Index is chunk-local when returned by a LinkClassifier and global
// once the classifier has remapped it.
type ClassifiedItem struct {
	Index        int      `json:"index"`
	WhatHappened string   `json:"what_happened"`
	ImpactOn     string   `json:"impact_on"`
	Countries    []string `json:"countries"`
	People       []string `json:"people"`
}

type Article struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	URL           string     `json:"url"`
	Categories    string     `json:"categories,omitempty"`
	Content       *string    `json:"content"`
	PublishedDate *time.Time `json:"published_date"`
	SummarySimple *string    `json:"summary_simple"`
	Embedding     []float32  `json:"-"`
	ImageFilename *string    `json:"image_filename"`
}

func (a Article) IsDigest() bool {
	return a.URL == DigestURL
}

func (a Article) HasContent() bool {
	return a.Content != nil && *a.Content != ""
}

func (a Article) HasSummary() bool {
	return a.SummarySimple != nil && *a.SummarySimple != ""
}

func (a Article) HasEmbedding() bool {
	return len(a.Embedding) > 0
}

// Extracted is the readable part of an article page.
type Extracted struct {
	Markdown  string
	Published *time.Time
}

// CategoriesVersion is the current serialization version of Categories.
const CategoriesVersion = 1

// Categories is the classification metadata stored in Article.Categories.
// Version 0 is the legacy shape that only carried countries and people.
type Categories struct {
	Version      int      `json:"v"`
	WhatHappened string   `json:"what_happened,omitempty"`
	ImpactOn     string   `json:"impact_on,omitempty"`
	Countries    []string `json:"countries"`
	People       []string `json:"people"`
}

func CategoriesFromItem(item ClassifiedItem) Categories {
	c := Categories{
		Version:      CategoriesVersion,
		WhatHappened: item.WhatHappened,
		ImpactOn:     item.ImpactOn,
		Countries:    item.Countries,
		People:       item.People,
	}
	if c.Countries == nil {
		c.Countries = []string{}
	}
	if c.People == nil {
		c.People = []string{}
	}
	return c
}

func (c Categories) Marshal() (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal categories: %w", err)
	}
	return string(b), nil
}

// ParseCategories decodes a stored categories value. Empty input yields
// the zero value.
func ParseCategories(s string) (Categories, error) {
	var c Categories
	if s == "" {
		return c, nil
	}
	if err := json.Unmarshal([]byte(s), &c); err != nil {
		return Categories{}, fmt.Errorf("parse categories: %w", err)
	}
	if c.Version > CategoriesVersion {
		return Categories{}, fmt.Errorf("parse categories: unsupported version %d", c.Version)
	}
	return c, nil
}
