package cli

import (
	"context"

	"github.com/sherryycxie/tables/internal/client/coordinator"
	"github.com/sherryycxie/tables/internal/client/models"
)

// ListReflections prints the caller's private reflections, numbered.
func (a *App) ListReflections(ctx context.Context) error {
	list, err := a.svc.FetchReflections(ctx)
	if err != nil {
		return a.report(ctx, "reflections", err)
	}
	a.lastReflections = list
	if len(list) == 0 {
		a.println("No reflections yet. Use 'reflect' to write one.")
		return nil
	}
	for i, r := range list {
		prompt := ""
		if r.Prompt != nil {
			prompt = *r.Prompt + ": "
		}
		a.printf("%2d. %s%s  (%s)\n", i+1, prompt, firstLine(r.Body), formatTime(r.CreatedAt.Time))
	}
	return nil
}

// Reflect writes a new reflection. "reflect deep" records a deep reflection.
func (a *App) Reflect(ctx context.Context, args []string) error {
	kind := models.ReflectionQuickWin
	if len(args) > 0 && args[0] == "deep" {
		kind = models.ReflectionDeep
	}
	prompt, err := a.ask("Prompt (optional)")
	if err != nil {
		return err
	}
	body, err := a.askMultiline("Reflection")
	if err != nil {
		return err
	}
	r, err := a.svc.CreateReflection(ctx, body, prompt, kind)
	if err != nil {
		return a.report(ctx, "reflect", err)
	}
	a.lastReflections = append([]models.Reflection{r}, a.lastReflections...)
	a.println("Saved.")
	return nil
}

func (a *App) EditReflection(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.report(ctx, "edit reflection", usage("edit-reflection <reflection>"))
	}
	r, err := a.resolveReflection(args[0])
	if err != nil {
		return a.report(ctx, "edit reflection", err)
	}
	a.println(r.Body)
	body, err := a.askMultiline("New text")
	if err != nil {
		return err
	}
	if _, err := a.svc.UpdateReflection(ctx, r.ID, body); err != nil {
		return a.report(ctx, "edit reflection", err)
	}
	a.println("Updated.")
	return nil
}

func (a *App) DeleteReflection(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.report(ctx, "delete reflection", usage("delete-reflection <reflection>"))
	}
	r, err := a.resolveReflection(args[0])
	if err != nil {
		return a.report(ctx, "delete reflection", err)
	}
	if !a.confirm("Delete this reflection?") {
		a.println("Cancelled.")
		return nil
	}
	if err := a.svc.DeleteReflection(ctx, r.ID); err != nil {
		return a.report(ctx, "delete reflection", err)
	}
	a.println("Deleted.")
	return nil
}

// ShareReflection copies a reflection, or an excerpt of it, into a table as
// a card.
func (a *App) ShareReflection(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return a.report(ctx, "share reflection", usage("share-reflection <reflection> <table>"))
	}
	r, err := a.resolveReflection(args[0])
	if err != nil {
		return a.report(ctx, "share reflection", err)
	}
	t, err := a.resolveTable(args[1])
	if err != nil {
		return a.report(ctx, "share reflection", err)
	}
	excerpt, err := a.askMultiline("Excerpt to share (leave empty to share the whole reflection)")
	if err != nil {
		return err
	}
	if excerpt == "" {
		if _, err := a.svc.ShareReflectionToTable(ctx, r, t.ID); err != nil {
			return a.report(ctx, "share reflection", err)
		}
		a.println("Shared to", t.Title)
		return nil
	}
	question, err := a.ask("Question for the table (optional)")
	if err != nil {
		return err
	}
	ex := models.Excerpt{ReflectionID: r.ID, TableID: t.ID, Text: excerpt, Question: question}
	if _, err := a.svc.ShareReflectionExcerpt(ctx, r, ex); err != nil {
		return a.report(ctx, "share excerpt", err)
	}
	a.println("Excerpt shared to", t.Title)
	return nil
}

// Seed starts a new table from an excerpt of a reflection.
func (a *App) Seed(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.report(ctx, "seed", usage("seed <reflection>"))
	}
	r, err := a.resolveReflection(args[0])
	if err != nil {
		return a.report(ctx, "seed", err)
	}
	var in coordinator.SeedInput
	if in.Name, err = a.ask("Table name"); err != nil {
		return err
	}
	if in.Excerpt, err = a.askMultiline("Excerpt (at least 20 characters)"); err != nil {
		return err
	}
	if in.Question, err = a.ask("Question (optional)"); err != nil {
		return err
	}
	if in.NextStep, err = a.ask("Next step (optional)"); err != nil {
		return err
	}
	invitees, err := a.ask("Invite by email, comma separated (optional)")
	if err != nil {
		return err
	}
	in.Invitees = SplitList(invitees)

	t, err := a.svc.CreateSeededTable(ctx, r, in)
	if err != nil && t.Title == "" {
		return a.report(ctx, "seed", err)
	}
	a.println("Created table", t.Title, "["+shortID(t.ID)+"]")
	return a.report(ctx, "seed", err)
}
