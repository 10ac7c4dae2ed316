// Package content is the site's content model: settings, navigation and the
// record collections edited in the admin area, all kept in a store.Store.
package content

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/Zachkp/folio/internal/store"
)

// Repo reads and writes site content. It is cheap to construct; all state
// lives in the store.
type Repo struct {
	store *store.Store
	now   func() time.Time

	projects     collection[Project]
	skills       collection[Skill]
	experience   collection[Experience]
	posts        collection[BlogPost]
	testimonials collection[Testimonial]
	pages        collection[CustomPage]
	messages     collection[ContactMessage]
	sessions     collection[AdminSession]
}

func NewRepo(s *store.Store) *Repo {
	d := Defaults()
	return &Repo{
		store:        s,
		now:          time.Now,
		projects:     collection[Project]{store: s, key: KeyProjects, def: d.Projects},
		skills:       collection[Skill]{store: s, key: KeySkills, def: d.Skills},
		experience:   collection[Experience]{store: s, key: KeyExperience, def: d.Experience},
		posts:        collection[BlogPost]{store: s, key: KeyPosts, def: d.Posts},
		testimonials: collection[Testimonial]{store: s, key: KeyTestimonials, def: d.Testimonials},
		pages:        collection[CustomPage]{store: s, key: KeyPages, def: d.Pages},
		messages:     collection[ContactMessage]{store: s, key: KeyMessages, def: d.Messages},
		sessions:     collection[AdminSession]{store: s, key: KeyAdminSessions, def: []AdminSession{}},
	}
}

// For returns a Repo over the store carried by ctx. It panics with
// store.ErrNoStore when the request was not routed through the store
// middleware.
func For(ctx context.Context) *Repo {
	return NewRepo(store.MustFrom(ctx))
}

// Store returns the underlying store.
func (r *Repo) Store() *store.Store { return r.store }

func (r *Repo) Settings() SiteSettings {
	return store.Get(r.store, KeySettings, defaultSettings)
}

func (r *Repo) SaveSettings(s SiteSettings) error {
	if err := check("settings", s); err != nil {
		return err
	}
	store.Put(r.store, KeySettings, s)
	return nil
}

// Navigation returns every nav item ordered for display.
func (r *Repo) Navigation() []NavItem {
	items := append([]NavItem(nil), store.Get(r.store, KeyNavigation, defaultNavigation)...)
	sort.SliceStable(items, func(i, j int) bool { return items[i].Order < items[j].Order })
	return items
}

// Menu is the navigation shown to visitors: visible items followed by
// published custom pages that ask to be listed.
func (r *Repo) Menu() []NavItem {
	var menu []NavItem
	for _, item := range r.Navigation() {
		if item.Visible {
			menu = append(menu, item)
		}
	}
	for _, page := range r.Pages(false) {
		if page.ShowInNav {
			menu = append(menu, NavItem{Label: page.Title, Path: "/p/" + page.Slug, Visible: true})
		}
	}
	return menu
}

func (r *Repo) SaveNavigation(items []NavItem) error {
	for _, item := range items {
		if err := check("navigation item", item); err != nil {
			return err
		}
	}
	store.Put(r.store, KeyNavigation, append([]NavItem{}, items...))
	return nil
}

// Projects returns every project by display order.
func (r *Repo) Projects() []Project {
	items := append([]Project(nil), r.projects.all()...)
	sort.SliceStable(items, func(i, j int) bool { return items[i].Order < items[j].Order })
	return items
}

func (r *Repo) FeaturedProjects() []Project {
	var featured []Project
	for _, p := range r.Projects() {
		if p.Featured {
			featured = append(featured, p)
		}
	}
	return featured
}

func (r *Repo) ProjectBySlug(slug string) (Project, error) {
	p, ok := r.projects.find(func(p Project) bool { return p.Slug == slug })
	if !ok {
		return Project{}, ErrNotFound
	}
	return p, nil
}

// SaveProject validates p, fills in id, slug and creation time when missing
// and stores it, replacing any project with the same id.
func (r *Repo) SaveProject(p Project) (Project, error) {
	p.Title = strings.TrimSpace(p.Title)
	if p.ID == "" {
		p.ID = newID()
	}
	if p.Slug == "" {
		p.Slug = Slugify(p.Title)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.now().UTC()
	}
	if err := check("project", p); err != nil {
		return Project{}, err
	}
	if err := r.projects.saveSlugged("project", p, func(p Project) string { return p.Slug }); err != nil {
		return Project{}, err
	}
	return p, nil
}

func (r *Repo) DeleteProject(id string) error { return r.projects.delete(id) }

func (r *Repo) Skills() []Skill {
	return r.skills.all()
}

// SkillGroup is the skills of one category.
type SkillGroup struct {
	Category string
	Skills   []Skill
}

// SkillsByCategory groups skills, keeping categories in first-seen order and
// skills by descending level.
func (r *Repo) SkillsByCategory() []SkillGroup {
	var groups []SkillGroup
	index := map[string]int{}
	for _, s := range r.Skills() {
		category := s.Category
		if category == "" {
			category = "Other"
		}
		i, ok := index[category]
		if !ok {
			i = len(groups)
			index[category] = i
			groups = append(groups, SkillGroup{Category: category})
		}
		groups[i].Skills = append(groups[i].Skills, s)
	}
	for _, g := range groups {
		sort.SliceStable(g.Skills, func(i, j int) bool { return g.Skills[i].Level > g.Skills[j].Level })
	}
	return groups
}

func (r *Repo) SaveSkill(s Skill) (Skill, error) {
	s.Name = strings.TrimSpace(s.Name)
	if s.ID == "" {
		s.ID = newID()
	}
	if err := check("skill", s); err != nil {
		return Skill{}, err
	}
	r.skills.save(s)
	return s, nil
}

func (r *Repo) DeleteSkill(id string) error { return r.skills.delete(id) }

// Experience returns entries of kind (all kinds when empty) by display order.
func (r *Repo) Experience(kind string) []Experience {
	var items []Experience
	for _, e := range r.experience.all() {
		if kind == "" || e.Kind == kind {
			items = append(items, e)
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Order < items[j].Order })
	return items
}

func (r *Repo) SaveExperience(e Experience) (Experience, error) {
	if e.ID == "" {
		e.ID = newID()
	}
	if err := check("experience", e); err != nil {
		return Experience{}, err
	}
	r.experience.save(e)
	return e, nil
}

func (r *Repo) DeleteExperience(id string) error { return r.experience.delete(id) }

// Posts returns blog posts newest first. Drafts are included only on request.
func (r *Repo) Posts(includeDrafts bool) []BlogPost {
	var items []BlogPost
	for _, p := range r.posts.all() {
		if includeDrafts || p.Published {
			items = append(items, p)
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].PublishedAt.After(items[j].PublishedAt) })
	return items
}

func (r *Repo) PostBySlug(slug string, includeDrafts bool) (BlogPost, error) {
	p, ok := r.posts.find(func(p BlogPost) bool { return p.Slug == slug })
	if !ok || (!p.Published && !includeDrafts) {
		return BlogPost{}, ErrNotFound
	}
	return p, nil
}

// SavePost stamps PublishedAt the first time a post is published.
func (r *Repo) SavePost(p BlogPost) (BlogPost, error) {
	p.Title = strings.TrimSpace(p.Title)
	if p.ID == "" {
		p.ID = newID()
	}
	if p.Slug == "" {
		p.Slug = Slugify(p.Title)
	}
	if p.Published && p.PublishedAt.IsZero() {
		p.PublishedAt = r.now().UTC()
	}
	if err := check("post", p); err != nil {
		return BlogPost{}, err
	}
	if err := r.posts.saveSlugged("post", p, func(p BlogPost) string { return p.Slug }); err != nil {
		return BlogPost{}, err
	}
	return p, nil
}

func (r *Repo) DeletePost(id string) error { return r.posts.delete(id) }

func (r *Repo) Testimonials() []Testimonial {
	return r.testimonials.all()
}

func (r *Repo) SaveTestimonial(t Testimonial) (Testimonial, error) {
	if t.ID == "" {
		t.ID = newID()
	}
	if err := check("testimonial", t); err != nil {
		return Testimonial{}, err
	}
	r.testimonials.save(t)
	return t, nil
}

func (r *Repo) DeleteTestimonial(id string) error { return r.testimonials.delete(id) }

func (r *Repo) Pages(includeDrafts bool) []CustomPage {
	var items []CustomPage
	for _, p := range r.pages.all() {
		if includeDrafts || p.Published {
			items = append(items, p)
		}
	}
	return items
}

func (r *Repo) PageBySlug(slug string, includeDrafts bool) (CustomPage, error) {
	p, ok := r.pages.find(func(p CustomPage) bool { return p.Slug == slug })
	if !ok || (!p.Published && !includeDrafts) {
		return CustomPage{}, ErrNotFound
	}
	return p, nil
}

func (r *Repo) SavePage(p CustomPage) (CustomPage, error) {
	p.Title = strings.TrimSpace(p.Title)
	if p.ID == "" {
		p.ID = newID()
	}
	if p.Slug == "" {
		p.Slug = Slugify(p.Title)
	}
	if err := check("page", p); err != nil {
		return CustomPage{}, err
	}
	if err := r.pages.saveSlugged("page", p, func(p CustomPage) string { return p.Slug }); err != nil {
		return CustomPage{}, err
	}
	return p, nil
}

func (r *Repo) DeletePage(id string) error { return r.pages.delete(id) }

// Messages returns contact messages newest first.
func (r *Repo) Messages() []ContactMessage {
	items := append([]ContactMessage(nil), r.messages.all()...)
	sort.SliceStable(items, func(i, j int) bool { return items[i].ReceivedAt.After(items[j].ReceivedAt) })
	return items
}

func (r *Repo) AddMessage(name, email, message string) (ContactMessage, error) {
	m := ContactMessage{
		ID:         newID(),
		Name:       strings.TrimSpace(name),
		Email:      strings.TrimSpace(email),
		Message:    strings.TrimSpace(message),
		ReceivedAt: r.now().UTC(),
	}
	if err := check("message", m); err != nil {
		return ContactMessage{}, err
	}
	r.messages.save(m)
	return m, nil
}

func (r *Repo) MarkMessageRead(id string, read bool) error {
	m, ok := r.messages.byID(id)
	if !ok {
		return ErrNotFound
	}
	m.Read = read
	r.messages.save(m)
	return nil
}

func (r *Repo) DeleteMessage(id string) error { return r.messages.delete(id) }

func (r *Repo) UnreadMessages() int {
	n := 0
	for _, m := range r.messages.all() {
		if !m.Read {
			n++
		}
	}
	return n
}

// Counts summarizes content for the admin dashboard.
type Counts struct {
	Projects     int `json:"projects"`
	Skills       int `json:"skills"`
	Experience   int `json:"experience"`
	Posts        int `json:"posts"`
	Drafts       int `json:"drafts"`
	Testimonials int `json:"testimonials"`
	Pages        int `json:"pages"`
	Messages     int `json:"messages"`
	Unread       int `json:"unread"`
}

func (r *Repo) Counts() Counts {
	posts := r.posts.all()
	published := 0
	for _, p := range posts {
		if p.Published {
			published++
		}
	}
	return Counts{
		Projects:     len(r.projects.all()),
		Skills:       len(r.skills.all()),
		Experience:   len(r.experience.all()),
		Posts:        published,
		Drafts:       len(posts) - published,
		Testimonials: len(r.testimonials.all()),
		Pages:        len(r.pages.all()),
		Messages:     len(r.messages.all()),
		Unread:       r.UnreadMessages(),
	}
}

// Export returns every content key. Admin sessions are not included.
func (r *Repo) Export() Bundle {
	return Bundle{
		Settings:     r.Settings(),
		Navigation:   r.Navigation(),
		Projects:     r.projects.all(),
		Skills:       r.skills.all(),
		Experience:   r.experience.all(),
		Posts:        r.posts.all(),
		Testimonials: r.testimonials.all(),
		Pages:        r.pages.all(),
		Messages:     r.messages.all(),
	}
}

// Import validates b as a whole and then replaces every content key with it.
// Nothing is written when any record is invalid.
func (r *Repo) Import(b Bundle) error {
	if err := check("settings", b.Settings); err != nil {
		return err
	}
	for _, v := range b.records() {
		if err := check(v.name, v.value); err != nil {
			return err
		}
	}

	store.Put(r.store, KeySettings, b.Settings)
	store.Put(r.store, KeyNavigation, nonNil(b.Navigation))
	store.Put(r.store, KeyProjects, nonNil(b.Projects))
	store.Put(r.store, KeySkills, nonNil(b.Skills))
	store.Put(r.store, KeyExperience, nonNil(b.Experience))
	store.Put(r.store, KeyPosts, nonNil(b.Posts))
	store.Put(r.store, KeyTestimonials, nonNil(b.Testimonials))
	store.Put(r.store, KeyPages, nonNil(b.Pages))
	store.Put(r.store, KeyMessages, nonNil(b.Messages))
	return nil
}

type namedRecord struct {
	name  string
	value any
}

func (b Bundle) records() []namedRecord {
	var out []namedRecord
	for _, v := range b.Navigation {
		out = append(out, namedRecord{"navigation item", v})
	}
	for _, v := range b.Projects {
		out = append(out, namedRecord{"project", v})
	}
	for _, v := range b.Skills {
		out = append(out, namedRecord{"skill", v})
	}
	for _, v := range b.Experience {
		out = append(out, namedRecord{"experience", v})
	}
	for _, v := range b.Posts {
		out = append(out, namedRecord{"post", v})
	}
	for _, v := range b.Testimonials {
		out = append(out, namedRecord{"testimonial", v})
	}
	for _, v := range b.Pages {
		out = append(out, namedRecord{"page", v})
	}
	for _, v := range b.Messages {
		out = append(out, namedRecord{"message", v})
	}
	return out
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
