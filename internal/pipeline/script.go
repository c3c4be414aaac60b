package pipeline

import (
	"fmt"
	"strings"

	"reelsmith/internal/assets"
)

// Source is one research result from the search phase.
type Source struct {
	Title string  `json:"title"`
	URL   string  `json:"url"`
	Score float64 `json:"score"`
}

// Article is the crawled long-form text a script is derived from.
type Article struct {
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
	Body  string `json:"body"`
}

// Script is the beat-structured narration for one short-form video.
type Script struct {
	Topic     string        `json:"topic"`
	Style     string        `json:"style,omitempty"`
	Tone      string        `json:"tone,omitempty"`
	Beats     []assets.Beat `json:"beats"`
	WordCount int           `json:"word_count"`
}

// Prompts maps script beats to visual treatments: generated image prompts
// for the high-importance beats, stock search queries for the rest.
type Prompts struct {
	Generated []string `json:"generated"`
	Stock     []string `json:"stock"`
}

// searchSources derives a deterministic ranked source list for a topic.
func searchSources(topic string) []Source {
	slug := slugify(topic)
	sources := make([]Source, 0, 3)
	for i, site := range []string{"news", "research", "blog"} {
		sources = append(sources, Source{
			Title: fmt.Sprintf("%s (%s)", topic, site),
			URL:   fmt.Sprintf("https://%s.example.com/articles/%s", site, slug),
			Score: 1 - float64(i)*0.2,
		})
	}
	return sources
}

// composeArticle synthesizes article text from a topic and its sources.
func composeArticle(topic string, sources []Source) Article {
	var b strings.Builder
	fmt.Fprintf(&b, "%s has been gathering attention across the industry. ", topic)
	b.WriteString("This is a closer look at what changed, why it matters, and where it goes next. ")
	for _, source := range sources {
		fmt.Fprintf(&b, "According to %s, the shift is already underway. ", source.Title)
	}
	fmt.Fprintf(&b, "However, the practical impact of %s depends on adoption. ", topic)
	b.WriteString("Imagine what the next year looks like if the trend holds.")

	article := Article{Title: topic, Body: b.String()}
	if len(sources) > 0 {
		article.URL = sources[0].URL
	}
	return article
}

// composeScript turns an article into a hook/points/conclusion beat
// structure.
func composeScript(topic, style, tone string, article Article) Script {
	sentences := splitSentences(article.Body)

	beats := make([]assets.Beat, 0, len(sentences)+2)
	beats = append(beats, assets.Beat{
		Tag:  "hook",
		Text: fmt.Sprintf("What if %s changes everything you know?", topic),
	})
	for _, sentence := range sentences {
		tag := "point"
		if strings.Contains(strings.ToLower(sentence), "however") {
			tag = "transition"
		}
		beats = append(beats, assets.Beat{Tag: tag, Text: sentence})
	}
	beats = append(beats, assets.Beat{
		Tag:  "conclusion",
		Text: fmt.Sprintf("That is %s in under a minute. Follow for more.", topic),
	})

	words := 0
	for _, beat := range beats {
		words += len(strings.Fields(beat.Text))
	}
	return Script{Topic: topic, Style: style, Tone: tone, Beats: beats, WordCount: words}
}

// composePrompts splits beats into generated visuals and stock queries
// under the visual budget.
func composePrompts(script Script, budget int) Prompts {
	selected := assets.Select(script.Beats, budget)
	generated := make(map[int]struct{}, len(selected))
	for _, index := range selected {
		generated[index] = struct{}{}
	}

	var prompts Prompts
	for i, beat := range script.Beats {
		if _, ok := generated[i]; ok {
			prompts.Generated = append(prompts.Generated,
				fmt.Sprintf("cinematic illustration, %s: %s", script.Topic, beat.Text))
			continue
		}
		prompts.Stock = append(prompts.Stock, stockQuery(script.Topic, beat))
	}
	return prompts
}

func stockQuery(topic string, beat assets.Beat) string {
	words := strings.Fields(strings.ToLower(beat.Text))
	if len(words) > 4 {
		words = words[:4]
	}
	return strings.TrimSpace(topic + " " + strings.Join(words, " "))
}

func splitSentences(text string) []string {
	var sentences []string
	for _, raw := range strings.Split(text, ". ") {
		sentence := strings.TrimSpace(strings.TrimSuffix(raw, "."))
		if sentence == "" {
			continue
		}
		sentences = append(sentences, sentence+".")
	}
	return sentences
}

func slugify(value string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "untitled"
	}
	return slug
}
