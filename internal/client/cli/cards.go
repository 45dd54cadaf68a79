package cli

import (
	"context"
	"strings"

	"github.com/sherryycxie/tables/internal/client/coordinator"
	"github.com/sherryycxie/tables/internal/client/models"
)

// ListCards prints a table's cards, numbered for discuss and comment.
func (a *App) ListCards(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.report(ctx, "cards", usage("cards <table>"))
	}
	t, err := a.resolveTable(args[0])
	if err != nil {
		return a.report(ctx, "cards", err)
	}
	cards, err := a.svc.FetchCards(ctx, t.ID)
	if err != nil {
		return a.report(ctx, "cards", err)
	}
	a.lastCards = cards
	if len(cards) == 0 {
		a.println("No cards on", t.Title, "yet.")
		return nil
	}
	for i, c := range cards {
		title := ""
		if c.Title != nil {
			title = *c.Title + ": "
		}
		mark := " "
		if c.Status == models.CardStatusDiscussed {
			mark = "✓"
		}
		a.printf("%2d. %s %s%s  (%s, %s)\n", i+1, mark, title, firstLine(c.Body), c.AuthorName, formatTime(c.CreatedAt.Time))
	}
	return nil
}

// AddCard posts a card to a table.
func (a *App) AddCard(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.report(ctx, "card", usage("card <table>"))
	}
	t, err := a.resolveTable(args[0])
	if err != nil {
		return a.report(ctx, "card", err)
	}
	title, err := a.ask("Title (optional)")
	if err != nil {
		return err
	}
	body, err := a.askMultiline("Card text")
	if err != nil {
		return err
	}
	link, err := a.ask("Link (optional)")
	if err != nil {
		return err
	}
	c, err := a.svc.CreateCard(ctx, coordinator.CardInput{
		TableID: t.ID,
		Title:   title,
		Body:    body,
		LinkURL: link,
	})
	if err != nil {
		return a.report(ctx, "create card", err)
	}
	a.lastCards = append([]models.Card{c}, a.lastCards...)
	a.println("Card added to", t.Title)
	return nil
}

// Discuss marks a card from the last listing as discussed.
func (a *App) Discuss(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.report(ctx, "discuss", usage("discuss <card>"))
	}
	c, err := a.resolveCard(args[0])
	if err != nil {
		return a.report(ctx, "discuss", err)
	}
	if _, err := a.svc.MarkCardDiscussed(ctx, c.ID); err != nil {
		return a.report(ctx, "discuss", err)
	}
	a.println("Marked as discussed.")
	return nil
}

func (a *App) ListComments(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.report(ctx, "comments", usage("comments <card>"))
	}
	c, err := a.resolveCard(args[0])
	if err != nil {
		return a.report(ctx, "comments", err)
	}
	comments, err := a.svc.FetchComments(ctx, c.ID)
	if err != nil {
		return a.report(ctx, "comments", err)
	}
	a.println(c.Body)
	if len(comments) == 0 {
		a.println("  No comments yet.")
		return nil
	}
	for _, cm := range comments {
		a.printf("  %s (%s): %s\n", cm.AuthorName, formatTime(cm.CreatedAt.Time), cm.Body)
	}
	return nil
}

func (a *App) AddComment(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.report(ctx, "comment", usage("comment <card> [text]"))
	}
	c, err := a.resolveCard(args[0])
	if err != nil {
		return a.report(ctx, "comment", err)
	}
	body, err := a.argOrAsk(args[1:], "Comment")
	if err != nil {
		return err
	}
	if _, err := a.svc.AddComment(ctx, c.ID, body); err != nil {
		return a.report(ctx, "comment", err)
	}
	a.println("Comment added.")
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}
