package content

// Initial copy shown until the owner edits it in the admin area.

var defaultSettings = SiteSettings{
	Name:     "Zach Kordas-Potter",
	Headline: "Software developer building useful, fun tools in Go",
	About: `I love building software that's both useful and fun, and I'm always curious about how things work behind the scenes.
Most of my projects start with a simple idea and turn into a chance to learn something new, whether it's exploring a
different language, experimenting with tools, or solving tricky problems.
When I'm not coding, you'll usually find me training Muay Thai, shooting pool with friends,
or chasing down a new challenge outside the screen.`,
	SEODescription: "Portfolio, projects and writing.",
	Socials: []SocialLink{
		{Label: "GitHub", URL: "https://github.com/Zachkp"},
	},
}

var defaultNavigation = []NavItem{
	{Label: "Home", Path: "/", Order: 0, Visible: true},
	{Label: "About", Path: "/about", Order: 1, Visible: true},
	{Label: "Skills", Path: "/skills", Order: 2, Visible: true},
	{Label: "Experience", Path: "/experience", Order: 3, Visible: true},
	{Label: "Projects", Path: "/projects", Order: 4, Visible: true},
	{Label: "Blog", Path: "/blog", Order: 5, Visible: true},
	{Label: "Contact", Path: "/contact", Order: 6, Visible: true},
}

var defaultProjects = []Project{
	{
		ID:      "mail-tui",
		Slug:    "mail-tui",
		Title:   "Terminal Mail Client",
		Summary: "A terminal-based email client built in Go with fuzzy finding.",
		Description: `A terminal-based email client built in Go with fuzzyfinder capabilities
using the Charmbracelet TUI framework and go-imap.`,
		Tech:     []string{"Go", "Bubble Tea", "IMAP"},
		Featured: true,
		Order:    0,
	},
	{
		ID:      "music-tui",
		Slug:    "music-tui",
		Title:   "Terminal Music Player",
		Summary: "YouTube Music playback from the command line.",
		Description: `A terminal-based music streaming application built in Go with an elegant TUI
interface, leveraging yt-dlp and mpv for seamless YouTube Music playback directly from the command line.`,
		Tech:     []string{"Go", "yt-dlp", "mpv"},
		Featured: true,
		Order:    1,
	},
	{
		ID:      "game-recommender",
		Slug:    "game-recommender",
		Title:   "Game Recommender",
		Summary: "Content-based game recommendations with TF-IDF.",
		Description: `A machine learning-powered web application that uses TF-IDF vectorization and cosine
similarity to recommend games based on content analysis, featuring interactive data visualizations and
real-time filtering by user reviews and ratings.`,
		Tech:  []string{"Python", "scikit-learn"},
		Order: 2,
	},
	{
		ID:      "folio",
		Slug:    "folio",
		Title:   "This Site",
		Summary: "A Go portfolio with its own CMS.",
		Description: `A portfolio website built with Go, Gin and HTMX, with an admin area that edits
every page and keeps open tabs and server replicas in sync.`,
		Tech:  []string{"Go", "Gin", "HTMX", "SQLite"},
		Order: 3,
	},
}

var defaultExperience = []Experience{
	{
		ID:           "target",
		Kind:         KindWork,
		Role:         "Presentation Expert",
		Organization: "Target",
		Start:        "Aug 2023",
		End:          "Present",
		Logo:         "/static/images/TargetLogo.jpg",
		Bullets: []string{
			"Executed over 300 merchandising transitions on tight timelines by organizing team workflows and adapting quickly to changing priorities",
			"Boosted operational efficiency by managing backroom inventory processes and streamlining communication between floor and logistics teams",
			"Enhanced pricing and signage accuracy across departments by standardizing daily checks and collaborating cross-functionally",
		},
		Order: 0,
	},
	{
		ID:           "jasons",
		Kind:         KindWork,
		Role:         "Manager",
		Organization: "Jasons Catered Events",
		Start:        "Aug 2016",
		End:          "Present",
		Logo:         "/static/images/jasonsCateringLogo.png",
		Bullets: []string{
			"Improved client satisfaction by coordinating customized menus and ensuring all dietary requirements were accurately met",
			"Supported event technology by troubleshooting AV equipment and managing digital order tracking systems",
			"Maintained supply inventory and coordinated timely delivery between venues",
		},
		Order: 1,
	},
	{
		ID:           "wgu",
		Kind:         KindEducation,
		Role:         "Bachelor of Computer Science",
		Organization: "Western Governors University",
		Start:        "Sept 2019",
		End:          "May 2023",
		Logo:         "/static/images/WGU-logo.png",
		Bullets: []string{
			"Graduated Magna Cum Laude with 3.8 GPA",
			"Relevant coursework: Data Structures, Algorithms, Web Development",
		},
		Order: 0,
	},
	{
		ID:           "comptia",
		Kind:         KindEducation,
		Role:         "Project Management",
		Organization: "CompTIA",
		Start:        "July 2022",
		End:          "Present",
		Logo:         "/static/images/comptiaCert.png",
		Bullets: []string{
			"Certified in agile project management methodology",
		},
		Order: 1,
	},
}

var defaultSkills = []Skill{
	{ID: "go", Name: "Go", Category: "Languages", Level: 85},
	{ID: "python", Name: "Python", Category: "Languages", Level: 70},
	{ID: "sql", Name: "SQL", Category: "Data", Level: 70},
	{ID: "htmx", Name: "HTMX", Category: "Web", Level: 65},
	{ID: "linux", Name: "Linux", Category: "Tools", Level: 75},
}

// Defaults returns the initial value of every content key.
func Defaults() Bundle {
	return Bundle{
		Settings:     defaultSettings,
		Navigation:   defaultNavigation,
		Projects:     defaultProjects,
		Skills:       defaultSkills,
		Experience:   defaultExperience,
		Posts:        []BlogPost{},
		Testimonials: []Testimonial{},
		Pages:        []CustomPage{},
		Messages:     []ContactMessage{},
	}
}
