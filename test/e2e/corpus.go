// Package e2e exercises the full pipeline over HTTP: upload, retrieval,
// answering and restart.
package e2e

import (
	"fmt"
)

// Document is one corpus file. Content is already clean: single spaces, no
// leading or trailing whitespace.
type Document struct {
	Name    string
	Content string
}

// Question asks for a document's content and names the file that must rank first.
type Question struct {
	Text           string
	ExpectedSource string
}

// Corpus holds documents and the questions asked about them.
type Corpus struct {
	Documents []Document
	Questions []Question
}

var facts = []string{
	"The harbor ferry leaves pier four every forty minutes between six in the morning and midnight.",
	"Library cards are renewed at the front desk and require a utility bill dated within three months.",
	"The community garden waters its beds on Tuesday and Friday evenings using collected rain.",
	"Night buses on route twelve stop at every second station after eleven in the evening.",
	"The museum offers free entry on the first Sunday of each month except in August.",
	"Recycling bins are emptied on Wednesdays and glass must be separated by color.",
	"Swimming lessons for children start in spring and are grouped by age rather than skill.",
	"The observatory opens its roof telescope only on clear nights with low wind.",
	"Bicycle parking near the station is free for the first two hours and then charged hourly.",
	"The farmers market moves indoors to the old grain hall from November until March.",
	"Parking permits for residents are issued per household and limited to two vehicles.",
	"The town archive digitized its maps and letters older than one hundred years.",
	"Snow clearing begins with school routes and hospital access roads before side streets.",
	"The public sauna keeps separate hours for families on Saturday mornings.",
	"Dog owners may use the east meadow off leash before nine in the morning.",
	"The choir rehearses in the chapel annex and welcomes new tenors every autumn.",
	"Boat rentals on the lake close when the water temperature drops below ten degrees.",
	"The repair cafe fixes small appliances on the last Thursday of the month.",
	"Tram tickets bought on the app are valid for ninety minutes including transfers.",
	"The botanical greenhouse keeps tropical plants at twenty six degrees all year.",
	"Street lights on the promenade dim to half brightness after one in the morning.",
	"The youth orchestra tours neighboring towns every summer with a borrowed bus.",
	"Voting stations in the district open at seven and close at eight in the evening.",
	"The ice rink resurfaces the ice every two hours during public skating sessions.",
}

// BuildCorpus returns n documents, cycling through extensions, and one
// question per document whose text is the document's content.
func BuildCorpus(n int, extensions []string) *Corpus {
	c := &Corpus{}
	for i := 0; i < n; i++ {
		content := facts[i%len(facts)]
		if i >= len(facts) {
			content = fmt.Sprintf("%s Edition %d.", content, i/len(facts)+1)
		}
		ext := extensions[i%len(extensions)]
		doc := Document{Name: fmt.Sprintf("doc-%03d%s", i+1, ext), Content: content}
		c.Documents = append(c.Documents, doc)
		c.Questions = append(c.Questions, Question{Text: content, ExpectedSource: doc.Name})
	}
	return c
}
