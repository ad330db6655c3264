package anki

// Note fields, in order.
var noteFields = []string{
	"Lemma",
	"Translation",
	"PartOfSpeech",
	"WordAsFound",
	"Example1",
	"Example2",
	"Audio",
	"SourceURL",
}

const cardCSS = `.card {
    font-family: arial;
    font-size: 20px;
    text-align: center;
    color: black;
    background-color: white;
}
.lemma { font-size: 32px; font-weight: bold; color: #2c3e50; margin-bottom: 10px; }
.pos { font-size: 14px; color: #7f8c8d; font-style: italic; margin-bottom: 15px; }
.translation { font-size: 24px; color: #2980b9; margin-bottom: 15px; }
.context { font-size: 16px; color: #34495e; margin: 15px 0 10px; }
.example { font-size: 14px; color: #555; font-style: italic; margin: 8px 20px; text-align: left; }
.source { font-size: 11px; color: #95a5a6; margin-top: 20px; }
`

const cardFront = `<div class="lemma">{{Lemma}}</div>
{{#PartOfSpeech}}<div class="pos">({{PartOfSpeech}})</div>{{/PartOfSpeech}}
{{Audio}}`

const cardBack = `{{FrontSide}}
<hr id="answer">
<div class="translation">{{Translation}}</div>
{{#WordAsFound}}<div class="context">As found: <i>{{WordAsFound}}</i></div>{{/WordAsFound}}
{{#Example1}}<div class="example">• {{Example1}}</div>{{/Example1}}
{{#Example2}}<div class="example">• {{Example2}}</div>{{/Example2}}
{{#SourceURL}}<div class="source">{{SourceURL}}</div>{{/SourceURL}}`

func noteModel(name string) Model {
	return Model{
		ModelName:     name,
		InOrderFields: noteFields,
		CSS:           cardCSS,
		CardTemplates: []CardTemplate{{Name: "Recognition", Front: cardFront, Back: cardBack}},
	}
}
