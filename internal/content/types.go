package content

import "time"

// Keys under which content is stored.
const (
	KeySettings      = "site-settings"
	KeyNavigation    = "navigation"
	KeyProjects      = "projects"
	KeySkills        = "skills"
	KeyExperience    = "experience"
	KeyPosts         = "blog-posts"
	KeyMessages      = "contact-messages"
	KeyTestimonials  = "testimonials"
	KeyPages         = "custom-pages"
	KeyAdminSessions = "admin-sessions"
)

// Record is implemented by every item kept in a collection.
type Record interface {
	RecordID() string
}

type SocialLink struct {
	Label string `json:"label" validate:"required,max=40"`
	URL   string `json:"url" validate:"required,url"`
}

type SiteSettings struct {
	Name           string       `json:"name" validate:"required,max=80"`
	Headline       string       `json:"headline" validate:"max=160"`
	About          string       `json:"about"`
	Email          string       `json:"email" validate:"omitempty,email"`
	Location       string       `json:"location,omitempty"`
	Avatar         string       `json:"avatar,omitempty"`
	ResumeURL      string       `json:"resumeUrl,omitempty" validate:"omitempty,url"`
	SEODescription string       `json:"seoDescription,omitempty" validate:"max=300"`
	BaseURL        string       `json:"baseUrl,omitempty" validate:"omitempty,url"`
	Socials        []SocialLink `json:"socials" validate:"dive"`
}

type NavItem struct {
	Label   string `json:"label" validate:"required,max=40"`
	Path    string `json:"path" validate:"required,startswith=/"`
	Order   int    `json:"order"`
	Visible bool   `json:"visible"`
}

type Project struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug" validate:"required,slug"`
	Title       string    `json:"title" validate:"required,max=120"`
	Summary     string    `json:"summary" validate:"max=300"`
	Description string    `json:"description"`
	Tech        []string  `json:"tech"`
	RepoURL     string    `json:"repoUrl,omitempty" validate:"omitempty,url"`
	LiveURL     string    `json:"liveUrl,omitempty" validate:"omitempty,url"`
	Image       string    `json:"image,omitempty"`
	Featured    bool      `json:"featured"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (p Project) RecordID() string { return p.ID }

type Skill struct {
	ID       string `json:"id"`
	Name     string `json:"name" validate:"required,max=60"`
	Category string `json:"category" validate:"max=60"`
	Level    int    `json:"level" validate:"min=0,max=100"`
}

func (s Skill) RecordID() string { return s.ID }

// Experience kinds.
const (
	KindWork      = "work"
	KindEducation = "education"
)

type Experience struct {
	ID           string   `json:"id"`
	Kind         string   `json:"kind" validate:"required,oneof=work education"`
	Role         string   `json:"role" validate:"required,max=120"`
	Organization string   `json:"organization" validate:"required,max=120"`
	Start        string   `json:"start" validate:"required"`
	End          string   `json:"end"`
	Logo         string   `json:"logo,omitempty"`
	Bullets      []string `json:"bullets"`
	Order        int      `json:"order"`
}

func (e Experience) RecordID() string { return e.ID }

type BlogPost struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug" validate:"required,slug"`
	Title       string    `json:"title" validate:"required,max=160"`
	Excerpt     string    `json:"excerpt" validate:"max=400"`
	Body        string    `json:"body"`
	Tags        []string  `json:"tags"`
	Published   bool      `json:"published"`
	PublishedAt time.Time `json:"publishedAt"`
}

func (b BlogPost) RecordID() string { return b.ID }

type Testimonial struct {
	ID     string `json:"id"`
	Author string `json:"author" validate:"required,max=80"`
	Role   string `json:"role" validate:"max=120"`
	Quote  string `json:"quote" validate:"required,max=1000"`
	Avatar string `json:"avatar,omitempty"`
}

func (t Testimonial) RecordID() string { return t.ID }

type CustomPage struct {
	ID        string `json:"id"`
	Slug      string `json:"slug" validate:"required,slug"`
	Title     string `json:"title" validate:"required,max=120"`
	Body      string `json:"body"`
	Published bool   `json:"published"`
	ShowInNav bool   `json:"showInNav"`
}

func (p CustomPage) RecordID() string { return p.ID }

type ContactMessage struct {
	ID         string    `json:"id"`
	Name       string    `json:"name" validate:"required,max=100"`
	Email      string    `json:"email" validate:"required,email"`
	Message    string    `json:"message" validate:"required,max=5000"`
	Read       bool      `json:"read"`
	ReceivedAt time.Time `json:"receivedAt"`
}

func (m ContactMessage) RecordID() string { return m.ID }

// AdminSession is a signed-in admin. Only the token hash is stored.
type AdminSession struct {
	TokenHash string    `json:"tokenHash"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s AdminSession) RecordID() string { return s.TokenHash }

// Bundle is every content key at once, used for export and import.
type Bundle struct {
	Settings     SiteSettings     `json:"settings"`
	Navigation   []NavItem        `json:"navigation"`
	Projects     []Project        `json:"projects"`
	Skills       []Skill          `json:"skills"`
	Experience   []Experience     `json:"experience"`
	Posts        []BlogPost       `json:"posts"`
	Testimonials []Testimonial    `json:"testimonials"`
	Pages        []CustomPage     `json:"pages"`
	Messages     []ContactMessage `json:"messages"`
}
