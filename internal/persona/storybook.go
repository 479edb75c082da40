package persona

import "strings"

// Landmark is a real place a storybook page can feature.
type Landmark struct {
	ID         string
	Name       string
	Tags       []string
	ImageHints []string
}

// City groups the landmarks available to the book template.
type City struct {
	ID        string
	Name      string
	Landmarks []Landmark
}

// DefaultCity is the launch catalogue. More cities become config once the
// storefront sells them.
var DefaultCity = City{
	ID:   "toronto",
	Name: "Toronto",
	Landmarks: []Landmark{
		{ID: "cntower", Name: "CN Tower", Tags: []string{"iconic", "viewpoint"}, ImageHints: []string{"glass observation deck", "city skyline", "distinctive antenna"}},
		{ID: "toronto_zoo", Name: "Toronto Zoo", Tags: []string{"zoo", "nature"}, ImageHints: []string{"zoo gate", "animal habitats", "greenery"}},
		{ID: "st_lawrence_market", Name: "St. Lawrence Market", Tags: []string{"food", "historic"}, ImageHints: []string{"red-brick facade", "market stalls", "peameal bacon"}},
	},
}

type beat struct {
	id       string
	kind     string
	tagIn    []string
	heading  string
	body     string
	base     string
	subject  string
	context  string
	fixedIns []string
}

var bookTemplate = []beat{
	{
		id: "intro", kind: "intro",
		heading: "Hello, {{child_name}}!",
		body:    "Welcome to {{city_name}}. Today's journey will be full of wonder, smiles, and real places you can visit!",
		base:    "whimsical children's illustration, portrait 8.5x11",
		subject: "{{child_name}} {{avatar_desc}} waves at a big welcome sign for {{city_name}}",
		context: "friendly locals, soft clouds",
		fixedIns: []string{
			"no text on image", "hero centered",
		},
	},
	{
		id: "iconic", kind: "landmark", tagIn: []string{"iconic", "viewpoint"},
		heading: "A Towering Start",
		body:    "{{child_name}} looks up at {{landmark_name}} and takes a deep breath. This place is famous for a reason!",
		base:    "bold color, child-friendly",
		subject: "{{child_name}} {{avatar_desc}} at {{landmark_name}}",
		context: "include {{landmark_visuals}}; show surrounding skyline",
		fixedIns: []string{
			"full-body hero", "recognizable landmark",
		},
	},
	{
		id: "nature", kind: "landmark", tagIn: []string{"park", "zoo", "nature"},
		heading: "Nature Break",
		body:    "At {{landmark_name}}, {{child_name}} spots something special. The air smells fresh, and the day feels magical.",
		base:    "lush greenery, gentle light",
		subject: "{{child_name}} exploring {{landmark_name}}",
		context: "include {{landmark_visuals}}; animals or water if relevant",
	},
	{
		id: "closing", kind: "closing",
		heading: "What a Day!",
		body:    "{{child_name}} visited {{visited_landmarks_list}} in {{city_name}}. The city is full of stories, and you're the hero!",
		base:    "warm, cozy ending scene",
		subject: "{{child_name}} waving goodnight",
		context: "small collage of tiny landmark icons in the background",
	},
}

var themeDirectives = []string{
	"bright", "whimsical", "child-friendly", "clean outlines",
	"eye-level", "slight wide-angle",
	"warm daylight", "soft glow",
	"smooth shading", "no embedded text",
}

var consistencyDirectives = []string{
	"keep {{child_name}} face consistent",
	"{{avatar_desc}} unchanged",
	"repeat outfit across scenes",
}

// BookPage is one planned storybook page: display copy plus the generation
// prompt that produces its illustration.
type BookPage struct {
	ID       string `json:"id"`
	Heading  string `json:"heading"`
	Body     string `json:"body"`
	Prompt   string `json:"prompt"`
	ImageURL string `json:"image_url,omitempty"`
}

// PlanBook expands the page template into concrete pages for one hero.
// pageCount is clamped to [2, 12] (the template repeats nothing, so at most
// len(template) pages come back).
func PlanBook(city City, childName, avatarDesc, avatarImageURL string, pageCount int) []BookPage {
	if pageCount < 2 {
		pageCount = 2
	}
	if pageCount > 12 {
		pageCount = 12
	}
	childName = HeroName(childName)
	if avatarDesc == "" {
		avatarDesc = "curly-haired child, joyful smile, friendly"
	}

	var visited []Landmark
	var pages []BookPage
	for _, b := range bookTemplate {
		var landmark *Landmark
		if b.kind == "landmark" {
			lm := chooseLandmark(city, b.tagIn)
			visited = append(visited, lm)
			landmark = &lm
		}
		ctx := tokenContext(city, childName, avatarDesc, landmark, visited)

		parts := []string{b.base, fillTokens(b.subject, ctx), fillTokens(b.context, ctx)}
		parts = append(parts, b.fixedIns...)
		parts = append(parts, themeDirectives...)
		for _, h := range consistencyDirectives {
			parts = append(parts, fillTokens(h, ctx))
		}
		if avatarImageURL != "" {
			parts = append(parts, "use reference image: "+avatarImageURL)
		}
		parts = append(parts, "aspect: portrait-8.5x11")

		var kept []string
		for _, p := range parts {
			if strings.TrimSpace(p) != "" {
				kept = append(kept, p)
			}
		}

		pages = append(pages, BookPage{
			ID:      b.id,
			Heading: fillTokens(b.heading, ctx),
			Body:    fillTokens(b.body, ctx),
			Prompt:  strings.Join(kept, " | "),
		})
	}
	if len(pages) > pageCount {
		pages = pages[:pageCount]
	}
	return pages
}

func chooseLandmark(city City, tagIn []string) Landmark {
	if len(city.Landmarks) == 0 {
		return Landmark{}
	}
	if len(tagIn) == 0 {
		return city.Landmarks[0]
	}
	for _, lm := range city.Landmarks {
		for _, tag := range lm.Tags {
			for _, want := range tagIn {
				if tag == want {
					return lm
				}
			}
		}
	}
	return city.Landmarks[0]
}

func tokenContext(city City, childName, avatarDesc string, landmark *Landmark, visited []Landmark) map[string]string {
	ctx := map[string]string{
		"city_name":   city.Name,
		"child_name":  childName,
		"avatar_desc": avatarDesc,
	}
	if landmark != nil {
		ctx["landmark_name"] = landmark.Name
		ctx["landmark_visuals"] = strings.Join(landmark.ImageHints, ", ")
	}
	names := make([]string, 0, len(visited))
	for _, v := range visited {
		names = append(names, v.Name)
	}
	ctx["visited_landmarks_list"] = strings.Join(names, ", ")
	return ctx
}

func fillTokens(template string, ctx map[string]string) string {
	out := template
	for key, value := range ctx {
		out = strings.ReplaceAll(out, "{{"+key+"}}", value)
	}
	return out
}
