package retriever

import (
	"regexp"

	"github.com/fyrsmithlabs/guidectl/internal/model"
)

type intentPattern struct {
	pattern *regexp.Regexp
	weight  float64
}

// intentOrder fixes declaration order so tied scores resolve to the
// earliest-declared intent, per spec §4.2.
var intentOrder = []model.TaskIntent{
	model.IntentBugFix,
	model.IntentFeature,
	model.IntentRefactor,
	model.IntentSecurity,
	model.IntentPerformance,
	model.IntentTesting,
	model.IntentDocs,
	model.IntentDeployment,
	model.IntentArchitecture,
	model.IntentDebug,
}

var intentPatterns = map[model.TaskIntent][]intentPattern{
	model.IntentBugFix: {
		{regexp.MustCompile(`(?i)\bfix\b`), 1.0},
		{regexp.MustCompile(`(?i)\bbug\b`), 1.0},
		{regexp.MustCompile(`(?i)\bbroken\b`), 0.8},
		{regexp.MustCompile(`(?i)\bregression\b`), 0.8},
		{regexp.MustCompile(`(?i)\bcrash(es|ing|ed)?\b`), 0.7},
	},
	model.IntentFeature: {
		{regexp.MustCompile(`(?i)\badd\b`), 0.8},
		{regexp.MustCompile(`(?i)\bimplement\b`), 1.0},
		{regexp.MustCompile(`(?i)\bnew feature\b`), 1.2},
		{regexp.MustCompile(`(?i)\bsupport for\b`), 0.8},
	},
	model.IntentRefactor: {
		{regexp.MustCompile(`(?i)\brefactor\b`), 1.2},
		{regexp.MustCompile(`(?i)\bclean ?up\b`), 0.8},
		{regexp.MustCompile(`(?i)\bsimplify\b`), 0.7},
		{regexp.MustCompile(`(?i)\brestructure\b`), 0.9},
	},
	model.IntentSecurity: {
		{regexp.MustCompile(`(?i)\bsecurity\b`), 1.2},
		{regexp.MustCompile(`(?i)\bvulnerabilit(y|ies)\b`), 1.2},
		{regexp.MustCompile(`(?i)\bauthenticat\w*\b`), 1.0},
		{regexp.MustCompile(`(?i)\bauthoriz\w*\b`), 1.0},
		{regexp.MustCompile(`(?i)\bexploit\b`), 1.0},
		{regexp.MustCompile(`(?i)\bCVE\b`), 1.0},
	},
	model.IntentPerformance: {
		{regexp.MustCompile(`(?i)\bperformance\b`), 1.2},
		{regexp.MustCompile(`(?i)\blatency\b`), 1.0},
		{regexp.MustCompile(`(?i)\bslow\b`), 0.8},
		{regexp.MustCompile(`(?i)\boptimi[sz]e\b`), 1.0},
		{regexp.MustCompile(`(?i)\bthroughput\b`), 0.9},
	},
	model.IntentTesting: {
		{regexp.MustCompile(`(?i)\btest(s|ing)?\b`), 1.0},
		{regexp.MustCompile(`(?i)\bcoverage\b`), 0.8},
		{regexp.MustCompile(`(?i)\bassert\w*\b`), 0.6},
		{regexp.MustCompile(`(?i)\bmock\w*\b`), 0.6},
	},
	model.IntentDocs: {
		{regexp.MustCompile(`(?i)\bdocs?\b`), 1.0},
		{regexp.MustCompile(`(?i)\bdocumentation\b`), 1.1},
		{regexp.MustCompile(`(?i)\breadme\b`), 0.9},
		{regexp.MustCompile(`(?i)\bcomment\w*\b`), 0.5},
	},
	model.IntentDeployment: {
		{regexp.MustCompile(`(?i)\bdeploy\w*\b`), 1.2},
		{regexp.MustCompile(`(?i)\brelease\b`), 0.8},
		{regexp.MustCompile(`(?i)\brollout\b`), 0.9},
		{regexp.MustCompile(`(?i)\bci/?cd\b`), 0.8},
	},
	model.IntentArchitecture: {
		{regexp.MustCompile(`(?i)\barchitecture\b`), 1.2},
		{regexp.MustCompile(`(?i)\bdesign\b`), 0.7},
		{regexp.MustCompile(`(?i)\bsystem design\b`), 1.0},
		{regexp.MustCompile(`(?i)\bmicroservices?\b`), 0.8},
	},
	model.IntentDebug: {
		{regexp.MustCompile(`(?i)\bdebug\w*\b`), 1.2},
		{regexp.MustCompile(`(?i)\btrace\b`), 0.7},
		{regexp.MustCompile(`(?i)\binvestigat\w*\b`), 0.8},
		{regexp.MustCompile(`(?i)\breproduc\w*\b`), 0.7},
	},
}

// ClassifyIntent scores taskDescription against every intent's weighted
// pattern list. The highest score wins; ties break to the earliest
// declared intent. An all-zero score falls back to general with
// confidence 0.1.
func ClassifyIntent(taskDescription string) (model.TaskIntent, float64) {
	bestIntent := model.IntentGeneral
	bestScore := 0.0

	for _, intent := range intentOrder {
		score := 0.0
		for _, p := range intentPatterns[intent] {
			if p.pattern.MatchString(taskDescription) {
				score += p.weight
			}
		}
		if score > bestScore {
			bestScore = score
			bestIntent = intent
		}
	}

	if bestScore == 0 {
		return model.IntentGeneral, 0.1
	}

	confidence := bestScore / 3.0
	if confidence > 1.0 {
		confidence = 1.0
	}
	return bestIntent, confidence
}
