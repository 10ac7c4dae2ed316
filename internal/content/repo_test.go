package content

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zachkp/folio/internal/store"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	s := store.New(store.NewMemoryBackend("test"), store.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	t.Cleanup(s.Close)
	r := NewRepo(s)
	r.now = func() time.Time { return fixedNow }
	return r
}

func TestDefaults(t *testing.T) {
	r := newTestRepo(t)

	assert.Equal(t, defaultSettings.Name, r.Settings().Name)
	assert.Len(t, r.Projects(), len(defaultProjects))
	assert.Len(t, r.Experience(KindWork), 2)
	assert.Len(t, r.Experience(KindEducation), 2)
	assert.Empty(t, r.Posts(true))
	assert.Empty(t, r.Messages())
}

func TestSettings(t *testing.T) {
	r := newTestRepo(t)

	s := r.Settings()
	s.Headline = "Backend developer"
	require.NoError(t, r.SaveSettings(s))
	assert.Equal(t, "Backend developer", r.Settings().Headline)

	s.Email = "not-an-email"
	err := r.SaveSettings(s)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "email", ve.Fields["email"])
	assert.Equal(t, "Backend developer", r.Settings().Headline)
}

func TestNavigationAndMenu(t *testing.T) {
	r := newTestRepo(t)

	require.NoError(t, r.SaveNavigation([]NavItem{
		{Label: "Blog", Path: "/blog", Order: 2, Visible: true},
		{Label: "Home", Path: "/", Order: 0, Visible: true},
		{Label: "Hidden", Path: "/hidden", Order: 1},
	}))
	_, err := r.SavePage(CustomPage{Title: "Uses", Published: true, ShowInNav: true})
	require.NoError(t, err)
	_, err = r.SavePage(CustomPage{Title: "Draft", ShowInNav: true})
	require.NoError(t, err)

	var labels []string
	for _, item := range r.Menu() {
		labels = append(labels, item.Label)
	}
	assert.Equal(t, []string{"Home", "Blog", "Uses"}, labels)

	err = r.SaveNavigation([]NavItem{{Label: "Bad", Path: "no-slash"}})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "path")
}

func TestProjects(t *testing.T) {
	r := newTestRepo(t)
	before := r.Projects()

	p, err := r.SaveProject(Project{Title: "  Rate Limiter ", Summary: "Token buckets", Order: 10})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "rate-limiter", p.Slug)
	assert.Equal(t, fixedNow, p.CreatedAt)

	got, err := r.ProjectBySlug("rate-limiter")
	require.NoError(t, err)
	assert.Equal(t, p, got)
	assert.Len(t, before, len(defaultProjects), "earlier snapshots are not modified")

	p.Summary = "Sliding windows"
	_, err = r.SaveProject(p)
	require.NoError(t, err)
	assert.Len(t, r.Projects(), len(defaultProjects)+1)
	got, _ = r.ProjectBySlug("rate-limiter")
	assert.Equal(t, "Sliding windows", got.Summary)

	_, err = r.SaveProject(Project{Title: "Rate limiter"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "taken", ve.Fields["slug"])

	_, err = r.SaveProject(Project{Title: "Bad link", RepoURL: "nope"})
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "repoUrl")

	require.NoError(t, r.DeleteProject(p.ID))
	_, err = r.ProjectBySlug("rate-limiter")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, r.DeleteProject(p.ID), ErrNotFound)
}

func TestFeaturedProjectsOrdered(t *testing.T) {
	r := newTestRepo(t)

	featured := r.FeaturedProjects()
	require.Len(t, featured, 2)
	assert.Equal(t, "mail-tui", featured[0].Slug)
	assert.Equal(t, "music-tui", featured[1].Slug)
}

func TestSkills(t *testing.T) {
	r := newTestRepo(t)

	_, err := r.SaveSkill(Skill{Name: "Rust", Category: "Languages", Level: 95})
	require.NoError(t, err)
	_, err = r.SaveSkill(Skill{Name: "Juggling", Level: 10})
	require.NoError(t, err)
	_, err = r.SaveSkill(Skill{Name: "Overflow", Level: 101})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	groups := r.SkillsByCategory()
	require.NotEmpty(t, groups)
	assert.Equal(t, "Languages", groups[0].Category)
	assert.Equal(t, "Rust", groups[0].Skills[0].Name)
	assert.Equal(t, "Other", groups[len(groups)-1].Category)

	require.NoError(t, r.DeleteSkill("go"))
	assert.Len(t, r.Skills(), len(defaultSkills)+1)
}

func TestExperience(t *testing.T) {
	r := newTestRepo(t)

	_, err := r.SaveExperience(Experience{Kind: "hobby", Role: "x", Organization: "y", Start: "2020"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "kind")

	e, err := r.SaveExperience(Experience{Kind: KindWork, Role: "Engineer", Organization: "Acme", Start: "2024", Order: -1})
	require.NoError(t, err)
	assert.Equal(t, e.ID, r.Experience(KindWork)[0].ID)
	assert.Len(t, r.Experience(""), len(defaultExperience)+1)

	require.NoError(t, r.DeleteExperience(e.ID))
}

func TestPosts(t *testing.T) {
	r := newTestRepo(t)

	draft, err := r.SavePost(BlogPost{Title: "Work in progress"})
	require.NoError(t, err)
	assert.True(t, draft.PublishedAt.IsZero())

	older, err := r.SavePost(BlogPost{Title: "Older", Published: true, PublishedAt: fixedNow.Add(-time.Hour)})
	require.NoError(t, err)
	newer, err := r.SavePost(BlogPost{Title: "Newer", Published: true})
	require.NoError(t, err)
	assert.Equal(t, fixedNow, newer.PublishedAt)

	published := r.Posts(false)
	require.Len(t, published, 2)
	assert.Equal(t, newer.ID, published[0].ID)
	assert.Equal(t, older.ID, published[1].ID)
	assert.Len(t, r.Posts(true), 3)

	_, err = r.PostBySlug("work-in-progress", false)
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := r.PostBySlug("work-in-progress", true)
	require.NoError(t, err)
	assert.Equal(t, draft.ID, got.ID)

	require.NoError(t, r.DeletePost(draft.ID))
	assert.Len(t, r.Posts(true), 2)
}

func TestPagesAndTestimonials(t *testing.T) {
	r := newTestRepo(t)

	_, err := r.SavePage(CustomPage{Title: "!!!"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "required", ve.Fields["slug"])

	page, err := r.SavePage(CustomPage{Title: "Now", Body: "Reading", Published: true})
	require.NoError(t, err)
	got, err := r.PageBySlug("now", false)
	require.NoError(t, err)
	assert.Equal(t, page, got)
	require.NoError(t, r.DeletePage(page.ID))

	tm, err := r.SaveTestimonial(Testimonial{Author: "Sam", Quote: "Ships on time."})
	require.NoError(t, err)
	assert.Len(t, r.Testimonials(), 1)
	require.NoError(t, r.DeleteTestimonial(tm.ID))
	assert.Empty(t, r.Testimonials())
}

func TestMessages(t *testing.T) {
	r := newTestRepo(t)

	_, err := r.AddMessage("Ann", "ann@example.com", "Hello there")
	require.NoError(t, err)
	r.now = func() time.Time { return fixedNow.Add(time.Minute) }
	latest, err := r.AddMessage("Bob", "bob@example.com", "Are you available?")
	require.NoError(t, err)

	_, err = r.AddMessage("", "nope", "")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Fields, 3)

	assert.Equal(t, latest.ID, r.Messages()[0].ID)
	assert.Equal(t, 2, r.UnreadMessages())

	require.NoError(t, r.MarkMessageRead(latest.ID, true))
	assert.Equal(t, 1, r.UnreadMessages())
	assert.ErrorIs(t, r.MarkMessageRead("missing", true), ErrNotFound)

	require.NoError(t, r.DeleteMessage(latest.ID))
	assert.Len(t, r.Messages(), 1)

	counts := r.Counts()
	assert.Equal(t, 1, counts.Messages)
	assert.Equal(t, 1, counts.Unread)
	assert.Equal(t, len(defaultProjects), counts.Projects)
}

func TestExportImport(t *testing.T) {
	src := newTestRepo(t)
	_, err := src.SavePost(BlogPost{Title: "Hello", Published: true})
	require.NoError(t, err)
	_, err = src.AddMessage("Ann", "ann@example.com", "Hi")
	require.NoError(t, err)

	bundle := src.Export()

	dst := newTestRepo(t)
	require.NoError(t, dst.Import(bundle))
	assert.Equal(t, bundle, dst.Export())

	bad := bundle
	bad.Skills = []Skill{{Name: "", Level: 5}}
	err = dst.Import(bad)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, bundle.Skills, dst.Export().Skills, "a rejected import writes nothing")
}

func TestForRequiresStoreInContext(t *testing.T) {
	assert.PanicsWithError(t, store.ErrNoStore.Error(), func() {
		For(context.Background())
	})

	r := newTestRepo(t)
	ctx := store.WithStore(context.Background(), r.Store())
	assert.Equal(t, r.Settings(), For(ctx).Settings())
}

func TestRepoSeesChangesFromOtherProcess(t *testing.T) {
	backend := store.NewMemoryBackend("shared")
	bus := store.NewMemoryBus()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := store.New(backend, store.WithBus(bus), store.WithLogger(logger))
	b := store.New(backend, store.WithBus(bus), store.WithLogger(logger))
	defer a.Close()
	defer b.Close()

	reader := NewRepo(b)
	assert.Len(t, reader.Projects(), len(defaultProjects))

	_, err := NewRepo(a).SaveProject(Project{Title: "Shared"})
	require.NoError(t, err)

	got, err := reader.ProjectBySlug("shared")
	require.NoError(t, err)
	assert.Equal(t, "Shared", got.Title)
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Hello World":          "hello-world",
		"  Go -- & SQL!  ":     "go-sql",
		"Already-slugged-123":  "already-slugged-123",
		"Ünïcode!!!":           "unicode",
		"Crème Brûlée Recipes": "creme-brulee-recipes",
		"日本語プロジェクト":            "日本語プロジェクト",
		"Привет, мир":          "привет-мир",
		"has space/and slash":  "has-space-and-slash",
		"!!!":                  "",
		"":                     "",
	}
	for in, want := range cases {
		got := Slugify(in)
		assert.Equal(t, want, got, in)
		assert.Equal(t, got, Slugify(got), "slugs are stable: %q", in)
	}
}

func TestSlugsAreValidated(t *testing.T) {
	r := newTestRepo(t)

	first, err := r.SaveProject(Project{Title: "日本語プロジェクト"})
	require.NoError(t, err)
	assert.Equal(t, "日本語プロジェクト", first.Slug)
	second, err := r.SaveProject(Project{Title: "中文项目"})
	require.NoError(t, err)
	assert.Equal(t, "中文项目", second.Slug)
	got, err := r.ProjectBySlug("日本語プロジェクト")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	var ve *ValidationError
	_, err = r.SaveProject(Project{Title: "???"})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "required", ve.Fields["slug"])

	_, err = r.SaveProject(Project{Title: "Explicit", Slug: "has space/and slash"})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "slug", ve.Fields["slug"])

	_, err = r.SavePost(BlogPost{Title: "Post", Slug: "Upper-Case"})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "slug", ve.Fields["slug"])

	_, err = r.SavePage(CustomPage{Title: "Page", Slug: "-leading"})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "slug", ve.Fields["slug"])

	_, err = r.SavePost(BlogPost{Title: "Post", Slug: "custom-slug"})
	assert.NoError(t, err)

	bundle := r.Export()
	bundle.Posts = append(bundle.Posts, BlogPost{ID: "x", Title: "Imported", Slug: "../etc"})
	assert.ErrorAs(t, r.Import(bundle), &ve)
}

func TestSlugClaimedOnceUnderConcurrentSaves(t *testing.T) {
	r := newTestRepo(t)
	const writers = 20

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		saved int
	)
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			if _, err := r.SavePost(BlogPost{Title: "Launch Day"}); err == nil {
				mu.Lock()
				saved++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, saved)
	count := 0
	for _, p := range r.Posts(true) {
		if p.Slug == "launch-day" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}
