package storage

import (
	"chat-hub/domain"
	"context"
	"fmt"
	"strings"

	"github.com/blugelabs/bluge"
)

const (
	idField       = "_id"
	usernameField = "username"
	emailField    = "email"
)

// Wildcards typed by the user would widen the match, they are dropped.
var wildcardStripper = strings.NewReplacer("*", "", "?", "")

// UserIndex is the search side of the user store.
// Username and email are indexed lower-cased as single keyword terms so that
// a wildcard query gives a case-insensitive substring match.
type UserIndex struct {
	writer *bluge.Writer
}

func NewUserIndex(writer *bluge.Writer) *UserIndex {
	return &UserIndex{writer: writer}
}

// OpenUserIndex opens or creates the index at path.
func OpenUserIndex(path string) (*UserIndex, error) {
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(path))
	if err != nil {
		return nil, fmt.Errorf("open bluge at %s: %w", path, err)
	}
	return NewUserIndex(writer), nil
}

func (i *UserIndex) Index(user domain.User) error {
	doc := bluge.NewDocument(user.ID).
		AddField(bluge.NewKeywordField(usernameField, strings.ToLower(user.Username))).
		AddField(bluge.NewKeywordField(emailField, strings.ToLower(user.Email)))
	return i.writer.Update(doc.ID(), doc)
}

// Search returns the ids of at most limit users whose username or email contains query.
func (i *UserIndex) Search(ctx context.Context, query, excludeID string, limit int) ([]string, error) {
	term := wildcardStripper.Replace(strings.ToLower(strings.TrimSpace(query)))
	if term == "" || limit <= 0 {
		return nil, nil
	}
	pattern := "*" + term + "*"

	q := bluge.NewBooleanQuery().
		AddShould(bluge.NewWildcardQuery(pattern).SetField(usernameField)).
		AddShould(bluge.NewWildcardQuery(pattern).SetField(emailField)).
		SetMinShould(1)
	if excludeID != "" {
		q.AddMustNot(bluge.NewTermQuery(excludeID).SetField(idField))
	}

	reader, err := i.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("open index reader: %w", err)
	}
	defer reader.Close()

	matches, err := reader.Search(ctx, bluge.NewTopNSearch(limit, q))
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}

	var ids []string
	match, err := matches.Next()
	for err == nil && match != nil {
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == idField {
				ids = append(ids, string(value))
				return false
			}
			return true
		})
		if err != nil {
			break
		}
		match, err = matches.Next()
	}
	if err != nil {
		return nil, fmt.Errorf("iterate search results: %w", err)
	}
	return ids, nil
}

func (i *UserIndex) Close() error {
	return i.writer.Close()
}
