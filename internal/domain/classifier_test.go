package domain

import (
	"reflect"
	"testing"
)

func TestSuggestTags(t *testing.T) {
	categories := []Category{
		{Name: "AI", Keywords: []string{"ai", "machine learning"}},
		{Name: "Design", Keywords: []string{"figma", "ui"}},
		{Name: "Food", Keywords: []string{"ramen"}},
	}

	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "single keyword", text: "New AI model released", want: []string{"AI"}},
		{name: "multi word keyword", text: "intro to Machine Learning", want: []string{"AI"}},
		{name: "word boundary", text: "we maintain this repo", want: []string{}},
		{name: "category order kept", text: "figma plugin powered by ai", want: []string{"AI", "Design"}},
		{name: "punctuation edges", text: "ramen!", want: []string{"Food"}},
		{name: "empty text", text: "   ", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SuggestTags(tt.text, categories)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SuggestTags(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" AI ", "ai", "", "Design", "design", "Go"})
	want := []string{"AI", "Design", "Go"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeTags() = %v, want %v", got, want)
	}
}
