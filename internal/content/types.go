package content

import "html/template"

// CategoryKey identifies a media category independent of language.
type CategoryKey string

const (
	CategoryAll       CategoryKey = "All"
	CategoryBatting   CategoryKey = "Batting"
	CategoryFielding  CategoryKey = "Fielding"
	CategoryTraining  CategoryKey = "Training"
	CategoryAward     CategoryKey = "Award"
	CategoryInterview CategoryKey = "Interview"
	CategoryPortrait  CategoryKey = "Portrait"
)

// Categories lists every category key in display order.
var Categories = []CategoryKey{
	CategoryAll,
	CategoryBatting,
	CategoryFielding,
	CategoryTraining,
	CategoryAward,
	CategoryInterview,
	CategoryPortrait,
}

// Valid reports whether k is one of the fixed category keys.
func (k CategoryKey) Valid() bool {
	for _, c := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// achievementIcons pairs achievements with icons by position.
var achievementIcons = []string{"award", "trophy", "trending-up", "bar-chart", "award", "trophy"}

type NavLink struct {
	Href  string `yaml:"href" json:"href"`
	Label string `yaml:"label" json:"label"`
}

type HeroStat struct {
	Value         int    `yaml:"value" json:"value"`
	Label         string `yaml:"label" json:"label"`
	IsApproximate bool   `yaml:"approximate" json:"isApproximate"`
}

// Hero is the landing section copy plus its counters.
type Hero struct {
	Name        string     `yaml:"name" json:"name"`
	Description string     `yaml:"description" json:"description"`
	Button      string     `yaml:"button" json:"button"`
	Stats       []HeroStat `yaml:"stats" json:"stats"`
}

// LatLng is a geographic coordinate pair in degrees.
type LatLng struct {
	Lat float64 `yaml:"lat" json:"lat"`
	Lng float64 `yaml:"lng" json:"lng"`
}

// TimelineEvent is one career milestone. Description is Markdown; DescriptionHTML is its
// sanitised rendering.
type TimelineEvent struct {
	Title           string        `yaml:"title" json:"title"`
	Year            string        `yaml:"year" json:"year"`
	Description     string        `yaml:"description" json:"description"`
	DescriptionHTML template.HTML `yaml:"-" json:"descriptionHtml"`
	ImageID         string        `yaml:"image" json:"imageId"`
	Coords          LatLng        `yaml:"coords" json:"coords"`
	Location        string        `yaml:"location" json:"location"`
}

// StatRow is one line of the career summary table. HS is the highest score as printed,
// optionally carrying a "not out" marker such as "254*".
type StatRow struct {
	Format  string  `yaml:"format" json:"format"`
	Matches int     `yaml:"matches" json:"matches"`
	Runs    int     `yaml:"runs" json:"runs"`
	HS      string  `yaml:"hs" json:"hs"`
	Avg     float64 `yaml:"avg" json:"avg"`
}

type YearRuns struct {
	Year string `yaml:"year" json:"year"`
	Runs int    `yaml:"runs" json:"runs"`
}

type Achievement struct {
	Icon string `json:"icon"`
	Text string `json:"text"`
}

// Stats bundles everything the stats section renders.
type Stats struct {
	Summary      []StatRow     `json:"careerSummary"`
	RunsByYear   []YearRuns    `json:"runsByYear"`
	Achievements []Achievement `json:"achievements"`
}

type MediaItem struct {
	ID          string      `yaml:"id" json:"id"`
	Type        string      `yaml:"type" json:"type"`
	Year        int         `yaml:"year" json:"year"`
	Event       string      `yaml:"event" json:"event"`
	Category    string      `yaml:"-" json:"category"`
	CategoryKey CategoryKey `yaml:"category" json:"categoryKey"`
}

type MediaFilter struct {
	Key   CategoryKey `yaml:"key" json:"key"`
	Label string      `yaml:"label" json:"label"`
}

// Media is the gallery content with its filter bar.
type Media struct {
	Items   []MediaItem   `json:"items"`
	Filters []MediaFilter `json:"filters"`
}

type SocialPost struct {
	ID        string `yaml:"id" json:"id"`
	Author    string `yaml:"author" json:"author"`
	Handle    string `yaml:"handle" json:"handle"`
	Avatar    string `yaml:"avatar" json:"avatar"`
	Timestamp string `yaml:"timestamp" json:"timestamp"`
	Content   string `yaml:"content" json:"content"`
	Likes     int    `yaml:"likes" json:"likes"`
	Retweets  int    `yaml:"retweets" json:"retweets"`
}

type SocialLinks struct {
	Twitter   string `yaml:"twitter" json:"twitter"`
	Instagram string `yaml:"instagram" json:"instagram"`
	Facebook  string `yaml:"facebook" json:"facebook"`
}

// SectionCopy is a section heading and its lead paragraph.
type SectionCopy struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
}

type StatsCopy struct {
	SectionCopy             `yaml:",inline"`
	SummaryTitle            string `yaml:"summary_title" json:"summaryTitle"`
	SummaryDescription      string `yaml:"summary_description" json:"summaryDescription"`
	ColFormat               string `yaml:"col_format" json:"colFormat"`
	ColMatches              string `yaml:"col_matches" json:"colMatches"`
	ColRuns                 string `yaml:"col_runs" json:"colRuns"`
	ColHS                   string `yaml:"col_hs" json:"colHs"`
	ColAvg                  string `yaml:"col_avg" json:"colAvg"`
	RunsTitle               string `yaml:"runs_title" json:"runsTitle"`
	RunsDescription         string `yaml:"runs_description" json:"runsDescription"`
	RunsBarLabel            string `yaml:"runs_bar_label" json:"runsBarLabel"`
	AchievementsTitle       string `yaml:"achievements_title" json:"achievementsTitle"`
	AchievementsDescription string `yaml:"achievements_description" json:"achievementsDescription"`
}

type ConnectCopy struct {
	SectionCopy        `yaml:",inline"`
	Follow             string `yaml:"follow" json:"follow"`
	FeedTitle          string `yaml:"feed_title" json:"feedTitle"`
	FormTitle          string `yaml:"form_title" json:"formTitle"`
	SubmittedTitle     string `yaml:"submitted_title" json:"submittedTitle"`
	SubmittedMessage   string `yaml:"submitted_message" json:"submittedMessage"`
	SendAnother        string `yaml:"send_another" json:"sendAnother"`
	Name               string `yaml:"name" json:"name"`
	NamePlaceholder    string `yaml:"name_placeholder" json:"namePlaceholder"`
	Email              string `yaml:"email" json:"email"`
	EmailPlaceholder   string `yaml:"email_placeholder" json:"emailPlaceholder"`
	Message            string `yaml:"message" json:"message"`
	MessagePlaceholder string `yaml:"message_placeholder" json:"messagePlaceholder"`
	Submit             string `yaml:"submit" json:"submit"`
}

// Sections holds the localized copy of every section.
type Sections struct {
	Career  SectionCopy `yaml:"career" json:"career"`
	Stats   StatsCopy   `yaml:"stats" json:"stats"`
	Media   SectionCopy `yaml:"media" json:"media"`
	Connect ConnectCopy `yaml:"connect" json:"connect"`
}

// document is the on-disk shape of one language file.
type document struct {
	Nav      []NavLink       `yaml:"nav"`
	Hero     Hero            `yaml:"hero"`
	Timeline []TimelineEvent `yaml:"timeline"`
	Stats    struct {
		Summary      []StatRow  `yaml:"summary"`
		RunsByYear   []YearRuns `yaml:"runs_by_year"`
		Achievements []string   `yaml:"achievements"`
	} `yaml:"stats"`
	Media struct {
		Filters []MediaFilter `yaml:"filters"`
		Items   []MediaItem   `yaml:"items"`
	} `yaml:"media"`
	Social   []SocialPost `yaml:"social"`
	Sections Sections     `yaml:"sections"`
}

// site holds language independent settings.
type site struct {
	Brand string      `yaml:"brand"`
	Links SocialLinks `yaml:"links"`
}
