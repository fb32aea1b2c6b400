package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/soullink/internal/client/replies"
	"github.com/dmitrijs2005/soullink/internal/models"
)

var errNoCompanion = errors.New("no companion selected, see 'list' and 'use <id>'")

func usage(s string) error {
	return fmt.Errorf("usage: %s", s)
}

func formatTime(ms int64) string {
	return time.UnixMilli(ms).Format("01-02 15:04")
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) currentCompanion() (models.Companion, error) {
	a.mu.Lock()
	id := a.current
	a.mu.Unlock()
	if id == "" {
		return models.Companion{}, errNoCompanion
	}
	return a.store.GetCompanion(id)
}

func (a *App) List(ctx context.Context) error {
	cs := a.store.GetCompanions()
	if len(cs) == 0 {
		a.printf("No companions. Use 'add' to create one.\n")
		return nil
	}

	a.mu.Lock()
	current := a.current
	a.mu.Unlock()

	for _, c := range cs {
		marker := " "
		if c.ID == current {
			marker = "*"
		}
		conflict := ""
		if c.ConflictState.IsActive {
			conflict = fmt.Sprintf(" [conflict %s]", c.ConflictState.ConflictLevel)
		}
		a.printf("%s %s  %s (%s, %s) score %d%s\n", marker, c.ID, c.DisplayName(), c.Relationship, c.Age, c.InteractionScore, conflict)
	}
	return nil
}

func (a *App) Use(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("use <id>")
	}
	c, err := a.store.GetCompanion(args[0])
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.current = c.ID
	a.mu.Unlock()

	a.printf("Now talking to %s.\n", c.DisplayName())
	return a.history(c)
}

func (a *App) history(c models.Companion) error {
	for _, m := range c.ChatHistory {
		who := "me"
		if m.Role == models.RoleModel {
			who = c.DisplayName()
		}
		anchor := ""
		if m.IsMemoryAnchored {
			anchor = " ★"
		}
		a.printf("[%s] %s %s: %s%s\n", m.ID, formatTime(m.Timestamp), who, m.Content, anchor)
		if m.Image != "" {
			a.printf("    image: %s\n", m.Image)
		}
	}
	return nil
}

func (a *App) Show(ctx context.Context, args []string) error {
	var (
		c   models.Companion
		err error
	)
	if len(args) > 0 {
		c, err = a.store.GetCompanion(args[0])
	} else {
		c, err = a.currentCompanion()
	}
	if err != nil {
		return err
	}

	d := c.Dimensions
	a.printf("%s (%s)\n", c.Name, c.ID)
	a.printf("  remark: %s\n  gender: %s  age: %s  relationship: %s\n", c.Remark, c.Gender, c.Age, c.Relationship)
	a.printf("  personality: %s\n  background: %s\n", c.PersonalityDescription, c.Background)
	a.printf("  empathy %d  rationality %d  humor %d  intimacy %d  creativity %d\n",
		d.Empathy, d.Rationality, d.Humor, d.Intimacy, d.Creativity)
	a.printf("  interaction score: %d\n", c.InteractionScore)
	a.printf("  conflict: active=%t score=%d level=%s\n",
		c.ConflictState.IsActive, c.ConflictState.UserNegativeScore, c.ConflictState.ConflictLevel)
	for _, m := range c.Memories {
		a.printf("  memory %s: %s\n", m.ID, m.Content)
	}
	return nil
}

func (a *App) Say(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("say <text>")
	}
	c, err := a.currentCompanion()
	if err != nil {
		return err
	}

	reply, err := a.store.SendMessage(ctx, c.ID, strings.Join(args, " "), "")
	if err != nil {
		return err
	}
	a.printf("%s: %s\n", c.DisplayName(), reply.Content)
	if reply.Image != "" {
		a.printf("    image: %s\n", reply.Image)
	}
	return nil
}

func (a *App) AddCompanion(ctx context.Context) error {
	name, err := GetSimpleText(a.reader, "Name", a.out)
	if err != nil {
		return err
	}
	if name == "" {
		return errors.New("name is required")
	}
	gender, err := GetSimpleText(a.reader, "Gender", a.out)
	if err != nil {
		return err
	}
	age, err := GetSimpleText(a.reader, "Age", a.out)
	if err != nil {
		return err
	}
	relationship, err := GetSimpleText(a.reader, "Relationship", a.out)
	if err != nil {
		return err
	}
	personality, err := GetMultiline(a.reader, "Personality", a.out)
	if err != nil {
		return err
	}
	intimacy, err := GetNumber(a.reader, "Intimacy (0-100)", 50, a.out)
	if err != nil {
		return err
	}

	c, err := a.store.AddCompanion(ctx, models.Companion{
		Name:                   name,
		Gender:                 gender,
		Age:                    age,
		Relationship:           relationship,
		PersonalityDescription: personality,
		Dimensions: models.PersonaDimensions{
			Empathy: 50, Rationality: 50, Humor: 50, Intimacy: intimacy, Creativity: 50,
		},
	})
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.current = c.ID
	a.mu.Unlock()

	a.printf("Created %s (%s).\n", c.Name, c.ID)
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("delete <id>")
	}
	if err := a.store.DeleteCompanion(ctx, args[0]); err != nil {
		return err
	}

	a.mu.Lock()
	if a.current == args[0] {
		a.current = ""
		if cs := a.store.GetCompanions(); len(cs) > 0 {
			a.current = cs[0].ID
		}
	}
	a.mu.Unlock()

	a.printf("Deleted %s.\n", args[0])
	return nil
}

func (a *App) Anchor(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("anchor <message id>")
	}
	c, err := a.currentCompanion()
	if err != nil {
		return err
	}
	anchored, err := a.store.ToggleMemoryAnchor(ctx, c.ID, args[0])
	if err != nil {
		return err
	}
	if anchored {
		a.printf("Anchored as a core memory.\n")
	} else {
		a.printf("Memory anchor removed.\n")
	}
	return nil
}

func (a *App) Resolve(ctx context.Context) error {
	c, err := a.currentCompanion()
	if err != nil {
		return err
	}
	if err := a.store.ResolveConflict(ctx, c.ID); err != nil {
		return err
	}
	a.printf("Conflict with %s resolved.\n", c.DisplayName())
	return nil
}

func (a *App) Moments(ctx context.Context) error {
	ms := a.store.GetMoments()
	if len(ms) == 0 {
		a.printf("No moments yet.\n")
		return nil
	}

	for _, m := range ms {
		author := "me"
		if m.AuthorRole == models.RoleModel {
			author = m.CompanionID
			if c, err := a.store.GetCompanion(m.CompanionID); err == nil {
				author = c.DisplayName()
			}
		}
		liked := ""
		if m.IsLiked {
			liked = " ♥"
		}
		a.printf("[%s] %s %s: %s (%d likes%s)\n", m.ID, formatTime(m.Timestamp), author, m.Content, m.Likes, liked)
		for _, cm := range m.Comments {
			a.printf("    %s: %s\n", cm.Name, cm.Content)
		}
	}
	return nil
}

func (a *App) Post(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("post <text>")
	}
	m, err := a.store.PostUserMoment(ctx, strings.Join(args, " "), "")
	if err != nil {
		return err
	}
	a.printf("Posted %s.\n", m.ID)
	return nil
}

func (a *App) Comment(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usage("comment <moment id> <text>")
	}
	return a.store.CommentOnMoment(ctx, args[0], strings.Join(args[1:], " "))
}

func (a *App) Like(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("like <moment id>")
	}
	liked, err := a.store.LikeMoment(ctx, args[0])
	if err != nil {
		return err
	}
	if liked {
		a.printf("Liked.\n")
	} else {
		a.printf("Like removed.\n")
	}
	return nil
}

func (a *App) Album(ctx context.Context) error {
	c, err := a.currentCompanion()
	if err != nil {
		return err
	}
	if len(c.Album) == 0 {
		a.printf("The album is empty.\n")
		return nil
	}
	for _, p := range c.Album {
		a.printf("[%s] %s %s %s (%s)\n", p.ID, formatTime(p.Timestamp), p.Description, p.URL, p.Type)
	}
	return nil
}

func (a *App) AddPhoto(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("photo <url> [description]")
	}
	c, err := a.currentCompanion()
	if err != nil {
		return err
	}
	p, err := a.store.AddAlbumPhoto(ctx, c.ID, models.AlbumPhoto{
		URL:         args[0],
		Description: strings.Join(args[1:], " "),
	})
	if err != nil {
		return err
	}
	a.printf("Added %s.\n", p.ID)
	return nil
}

func (a *App) DeletePhoto(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("rmphoto <photo id>")
	}
	c, err := a.currentCompanion()
	if err != nil {
		return err
	}
	return a.store.DeleteAlbumPhoto(ctx, c.ID, args[0])
}

func (a *App) Avatar(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("avatar <url>")
	}
	c, err := a.currentCompanion()
	if err != nil {
		return err
	}
	return a.store.ChangeCompanionAvatar(ctx, c.ID, args[0])
}

func (a *App) Profile(ctx context.Context, args []string) error {
	p := a.store.GetUserProfile()
	if len(args) > 0 {
		p.Name = strings.Join(args, " ")
		if err := a.store.UpdateUserProfile(ctx, p); err != nil {
			return err
		}
	}
	a.printf("%s (%s, %s) %s\n", p.Name, p.Gender, p.Age, p.Personality)
	return nil
}

func (a *App) Proactive(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usage("proactive <morning|night|no_reply> <seconds>")
	}
	trigger := replies.Trigger(args[0])
	switch trigger {
	case replies.TriggerMorning, replies.TriggerNight, replies.TriggerNoReply:
	default:
		return fmt.Errorf("unknown trigger %q", args[0])
	}
	secs, err := strconv.Atoi(args[1])
	if err != nil || secs < 0 {
		return fmt.Errorf("invalid delay %q", args[1])
	}

	c, err := a.currentCompanion()
	if err != nil {
		return err
	}
	if _, err := a.store.ScheduleProactiveMessage(c.ID, time.Duration(secs)*time.Second, trigger); err != nil {
		return err
	}
	a.printf("%s will write in %ds.\n", c.DisplayName(), secs)
	return nil
}

func (a *App) Sync(ctx context.Context) error {
	if a.store.Flush() {
		a.printf("Pending changes pushed.\n")
	} else {
		a.printf("Nothing to push.\n")
	}
	return nil
}
