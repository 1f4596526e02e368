package recommender

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/temcen/shelfrec/internal/catalog"
)

const (
	chatResultCount  = 5
	chatSummaryCount = 5

	chatHelpText = "I can recommend books (\"recommend book id: 42\" or \"similar to user id: 7\"), " +
		"search the catalog (\"find dune\"), or tell you about top genres, authors and best rated books."
	chatEmptySearchText = "What would you like me to search for?"
)

var (
	userIDPattern  = regexp.MustCompile(`(?i)user\s*id\s*:\s*(\d+)`)
	bookIDPattern  = regexp.MustCompile(`(?i)book\s*id\s*:\s*(\d+)`)
	searchKeywords = regexp.MustCompile(`(?i)\b(search|find)\b`)
)

type ReplyKind string

const (
	ReplyText            ReplyKind = "text"
	ReplyRecommendations ReplyKind = "recommendations"
)

// ChatReply is either a text message or a candidate list; check Kind.
type ChatReply struct {
	Kind       ReplyKind   `json:"kind"`
	Text       string      `json:"text,omitempty"`
	Candidates []Candidate `json:"candidates,omitempty"`
}

func (r ChatReply) IsText() bool {
	return r.Kind == ReplyText
}

func textReply(text string) ChatReply {
	return ChatReply{Kind: ReplyText, Text: text}
}

// Chat answers one free-text message. It holds no state between calls.
func (e *Engine) Chat(message string) ChatReply {
	lower := strings.ToLower(strings.TrimSpace(message))
	if lower == "" {
		return textReply(chatHelpText)
	}

	switch {
	case strings.Contains(lower, "recommend") || strings.Contains(lower, "similar"):
		req := Request{N: chatResultCount}
		if m := userIDPattern.FindStringSubmatch(message); m != nil {
			req.UserID = m[1]
		}
		if m := bookIDPattern.FindStringSubmatch(message); m != nil {
			req.ItemID = m[1]
		}
		return ChatReply{Kind: ReplyRecommendations, Candidates: e.Recommend(req)}

	case searchKeywords.MatchString(message):
		return textReply(e.search(message))

	case strings.Contains(lower, "genre"):
		return textReply("Top genres: " + strings.Join(e.stats.genres, ", "))
	case strings.Contains(lower, "author"):
		return textReply("Top authors: " + strings.Join(e.stats.authors, ", "))
	case strings.Contains(lower, "rating") || strings.Contains(lower, "best"):
		return textReply("Top rated books: " + strings.Join(e.stats.rated, ", "))
	}

	return textReply(chatHelpText)
}

func (e *Engine) search(message string) string {
	query := strings.TrimSpace(searchKeywords.ReplaceAllString(message, " "))
	query = strings.Join(strings.Fields(query), " ")
	if query == "" {
		return chatEmptySearchText
	}

	needle := strings.ToLower(query)
	var lines []string
	for _, item := range e.index.Items() {
		if !strings.Contains(strings.ToLower(item.Title), needle) &&
			!strings.Contains(strings.ToLower(item.Author), needle) &&
			!strings.Contains(strings.ToLower(item.Genre), needle) {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s by %s (Genres: %s)", item.Title, item.Author, item.Genre))
		if len(lines) == chatResultCount {
			break
		}
	}

	if len(lines) == 0 {
		return fmt.Sprintf("No books found matching '%s'.", query)
	}
	return strings.Join(lines, "\n")
}

// catalogStats holds the chat summaries, computed once per Engine.
type catalogStats struct {
	genres  []string
	authors []string
	rated   []string
}

type rankedName struct {
	name  string
	value float64
}

func topNames(values map[string]float64, n int) []string {
	ranked := make([]rankedName, 0, len(values))
	for name, v := range values {
		ranked = append(ranked, rankedName{name: name, value: v})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].value != ranked[j].value {
			return ranked[i].value > ranked[j].value
		}
		return ranked[i].name < ranked[j].name
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}

	names := make([]string, len(ranked))
	for i, r := range ranked {
		names[i] = r.name
	}
	return names
}

func computeCatalogStats(snapshot *catalog.Snapshot) *catalogStats {
	// genres group case-insensitively and display the first spelling seen
	genreCounts := make(map[string]float64)
	genreNames := make(map[string]string)
	authors := make(map[string]float64)
	for _, item := range snapshot.Items {
		for _, g := range catalog.SplitGenres(item.Genre) {
			if strings.EqualFold(g, catalog.UnknownGenre) {
				continue
			}
			key := strings.ToLower(g)
			if _, seen := genreNames[key]; !seen {
				genreNames[key] = g
			}
			genreCounts[key]++
		}
		if item.Author != "" {
			authors[item.Author]++
		}
	}

	type ratingSum struct {
		sum   float64
		count int
	}
	fromEvents := make(map[string]*ratingSum)
	for _, ev := range snapshot.Ratings {
		s, ok := fromEvents[ev.ItemID]
		if !ok {
			s = &ratingSum{}
			fromEvents[ev.ItemID] = s
		}
		s.sum += ev.Rating
		s.count++
	}

	rated := make(map[string]float64)
	for _, item := range snapshot.Items {
		if item.Title == "" {
			continue
		}
		var mean float64
		switch {
		case item.AvgRating != nil:
			mean = *item.AvgRating
		case fromEvents[item.ID] != nil:
			s := fromEvents[item.ID]
			mean = s.sum / float64(s.count)
		default:
			continue
		}
		if prev, dup := rated[item.Title]; !dup || mean > prev {
			rated[item.Title] = mean
		}
	}

	genres := make(map[string]float64, len(genreCounts))
	for key, count := range genreCounts {
		genres[genreNames[key]] = count
	}

	return &catalogStats{
		genres:  topNames(genres, chatSummaryCount),
		authors: topNames(authors, chatSummaryCount),
		rated:   topNames(rated, chatSummaryCount),
	}
}
