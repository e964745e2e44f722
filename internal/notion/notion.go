// Package notion persists flow output to Notion: life5 and review rows in
// their databases, and memo entries appended under fixed category blocks.
package notion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jomei/notionapi"
)

// pageService defines the minimal interface for page operations.
type pageService interface {
	Create(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
	Update(ctx context.Context, id notionapi.PageID, req *notionapi.PageUpdateRequest) (*notionapi.Page, error)
}

// blockService defines the minimal interface for block operations.
type blockService interface {
	AppendChildren(ctx context.Context, id notionapi.BlockID, req *notionapi.AppendBlockChildrenRequest) (*notionapi.AppendBlockChildrenResponse, error)
}

// propertyNames maps flow-internal question keys to Notion column names.
// Keys without an entry pass through unchanged.
var propertyNames = map[string]string{
	"ValueStar":     "Value★",
	"ValueReason":   "Value reason",
	"MissionStar":   "Mission★",
	"MissionReason": "Mission reason",
	"IfThen":        "If-Then",
	"Tomorrow":      "TomorrowMIT",
}

// PropertyName resolves a flow-internal key to its Notion column name.
func PropertyName(key string) string {
	if name, ok := propertyNames[key]; ok {
		return name
	}
	return key
}

// categoryTarget is where a memo category's entries are appended: either a
// block directly, or one block per subcategory.
type categoryTarget struct {
	blockID  notionapi.BlockID
	children map[string]notionapi.BlockID
}

var categoryTargets = map[string]categoryTarget{
	"アイデア": {children: map[string]notionapi.BlockID{
		"仕事":     "215476859b9580af8f68c63eab51bc00",
		"プライベート": "215476859b95806d8f75c73b6b407c30",
	}},
	"感情":     {blockID: "215476859b958088b57bfb1a44944ebb"},
	"気づき":    {blockID: "215476859b9580a3bc10da74aa5dbfe9"},
	"後で調べる":  {blockID: "215476859b9580ff8a31ea3a6d348010"},
	"タスク":    {blockID: "215476859b9580dfbf65c9badda314fd"},
	"買い物リスト": {blockID: "215476859b95803fa180e1aab0b99d42"},
	"リンク":    {blockID: "215476859b95808b8cadd1eb44789038"},
}

// reviewColumns are the rich-text columns created empty on a new review
// row; answers patch them in one at a time.
var reviewColumns = []string{
	"Value★", "Value reason", "Mission★", "Mission reason",
	"Win", "If-Then", "Pride", "Gratitude",
	"EmotionTag", "EmotionNote", "Insight", "TomorrowMIT",
}

// Client implements the flow.Recorder persistence operations against the
// Notion API. The memo workspace may live behind a separate integration
// token from the journaling databases.
type Client struct {
	pages      pageService
	memoBlocks blockService

	lifeDBID   notionapi.DatabaseID
	reviewDBID notionapi.DatabaseID

	now func() time.Time
}

// Opts holds configuration options for creating a client.
type Opts struct {
	Token            string
	MemoToken        string
	LifeDatabaseID   string
	ReviewDatabaseID string
}

// Option modifies Opts.
type Option func(*Opts)

// WithToken sets the integration token for the journaling databases.
func WithToken(token string) Option {
	return func(o *Opts) { o.Token = token }
}

// WithMemoToken sets a separate integration token for the memo workspace.
func WithMemoToken(token string) Option {
	return func(o *Opts) { o.MemoToken = token }
}

// WithLifeDatabaseID sets the life5 database.
func WithLifeDatabaseID(id string) Option {
	return func(o *Opts) { o.LifeDatabaseID = id }
}

// WithReviewDatabaseID sets the review database.
func WithReviewDatabaseID(id string) Option {
	return func(o *Opts) { o.ReviewDatabaseID = id }
}

// NewClient creates a Notion client. A token is required; the memo token
// defaults to the main token.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("notion token not set")
	}
	if cfg.MemoToken == "" {
		cfg.MemoToken = cfg.Token
	}

	api := notionapi.NewClient(notionapi.Token(cfg.Token))
	memoAPI := notionapi.NewClient(notionapi.Token(cfg.MemoToken))
	slog.Debug("notion.NewClient created", "lifeDB", cfg.LifeDatabaseID, "reviewDB", cfg.ReviewDatabaseID)
	return &Client{
		pages:      api.Page,
		memoBlocks: memoAPI.Block,
		lifeDBID:   notionapi.DatabaseID(cfg.LifeDatabaseID),
		reviewDBID: notionapi.DatabaseID(cfg.ReviewDatabaseID),
		now:        time.Now,
	}, nil
}

// CreateLifeRecord creates a life5 row with the Q1 summary filled in and
// the remaining answer columns empty.
func (c *Client) CreateLifeRecord(ctx context.Context, userID, q1Summary string) (string, error) {
	props := notionapi.Properties{
		"Date":       titleProperty(c.now().Format("2006-01-02 15:04")),
		"UserID":     richTextProperty(userID),
		"Q1_Summary": richTextProperty(q1Summary),
	}
	for _, col := range []string{"Q2_Summary", "Q3_Summary", "Q4_Summary", "Q5_Summary"} {
		props[col] = emptyRichTextProperty()
	}

	page, err := c.pages.Create(ctx, &notionapi.PageCreateRequest{
		Parent:     notionapi.Parent{Type: notionapi.ParentTypeDatabaseID, DatabaseID: c.lifeDBID},
		Properties: props,
	})
	if err != nil {
		return "", fmt.Errorf("create life record: %w", err)
	}
	slog.Info("Notion life record created", "pageID", page.ID, "userID", userID)
	return string(page.ID), nil
}

// CreateReviewRecord creates an empty review row.
func (c *Client) CreateReviewRecord(ctx context.Context, userID string) (string, error) {
	props := notionapi.Properties{
		"Date":   titleProperty(c.now().Format("2006-01-02 15:04")),
		"UserID": richTextProperty(userID),
	}
	for _, col := range reviewColumns {
		props[col] = emptyRichTextProperty()
	}

	page, err := c.pages.Create(ctx, &notionapi.PageCreateRequest{
		Parent:     notionapi.Parent{Type: notionapi.ParentTypeDatabaseID, DatabaseID: c.reviewDBID},
		Properties: props,
	})
	if err != nil {
		return "", fmt.Errorf("create review record: %w", err)
	}
	slog.Info("Notion review record created", "pageID", page.ID, "userID", userID)
	return string(page.ID), nil
}

// PatchRecord writes one answer column of an existing record.
func (c *Client) PatchRecord(ctx context.Context, recordID, key, value string) error {
	name := PropertyName(key)
	_, err := c.pages.Update(ctx, notionapi.PageID(recordID), &notionapi.PageUpdateRequest{
		Properties: notionapi.Properties{name: richTextProperty(value)},
	})
	if err != nil {
		return fmt.Errorf("patch record %s column %s: %w", recordID, name, err)
	}
	slog.Debug("Notion record patched", "pageID", recordID, "column", name)
	return nil
}

// AppendMemo appends a memo paragraph under the category's block. The
// アイデア category routes by subcategory; a missing or unknown destination
// is an error.
func (c *Client) AppendMemo(ctx context.Context, category, subcategory, content string) error {
	target, ok := categoryTargets[category]
	if !ok {
		return fmt.Errorf("unknown memo category %q", category)
	}

	blockID := target.blockID
	if target.children != nil {
		if subcategory == "" {
			return fmt.Errorf("memo category %q requires a subcategory", category)
		}
		blockID, ok = target.children[subcategory]
		if !ok {
			return fmt.Errorf("unknown subcategory %q for memo category %q", subcategory, category)
		}
	}

	_, err := c.memoBlocks.AppendChildren(ctx, blockID, &notionapi.AppendBlockChildrenRequest{
		Children: []notionapi.Block{
			&notionapi.ParagraphBlock{
				BasicBlock: notionapi.BasicBlock{
					Object: notionapi.ObjectTypeBlock,
					Type:   notionapi.BlockTypeParagraph,
				},
				Paragraph: notionapi.Paragraph{
					RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: content}}},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("append memo to %s: %w", category, err)
	}
	slog.Info("Notion memo appended", "category", category, "subcategory", subcategory)
	return nil
}

func titleProperty(s string) notionapi.TitleProperty {
	return notionapi.TitleProperty{
		Title: []notionapi.RichText{{Text: &notionapi.Text{Content: s}}},
	}
}

func richTextProperty(s string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: s}}},
	}
}

func emptyRichTextProperty() notionapi.RichTextProperty {
	return notionapi.RichTextProperty{RichText: []notionapi.RichText{}}
}
