package reply

import (
	"context"
	"regexp"
	"strings"

	"github.com/developer5167/chatspotWebservices/internal/domain/profile"
)

// Intent classifies a user message into a small conversational category.
type Intent string

const (
	IntentGreetingGeneral Intent = "greeting_general"
	IntentGreetingTime    Intent = "greeting_time"
	IntentHowAreYou       Intent = "how_are_you"
	IntentMoodBored       Intent = "mood_bored"
	IntentMoodTired       Intent = "mood_tired"
	IntentMoodHappy       Intent = "mood_happy"
	IntentMoodSad         Intent = "mood_sad"
	IntentThanks          Intent = "thanks"
	IntentSorry           Intent = "apology"
	IntentGoodbye         Intent = "goodbye"
	IntentReflectBack     Intent = "reflect_back"
	IntentAskName         Intent = "ask_name"
	IntentAskLocation     Intent = "ask_location"
	IntentAskJob          Intent = "ask_job"
	IntentAskHobby        Intent = "ask_hobby"
	IntentAskRelation     Intent = "ask_relation"
	IntentFood            Intent = "food"
	IntentWeather         Intent = "weather"
	IntentCompliment      Intent = "compliment"
	IntentLaugh           Intent = "laugh"
	IntentSmalltalkOK     Intent = "smalltalk_ok"
	IntentUnknown         Intent = "unknown"
)

type intentPattern struct {
	intent Intent
	re     *regexp.Regexp
}

// Ordered: the first matching pattern wins. Time greetings come before the
// general greeting so "good morning" is not shadowed by "hi".
var intentPatterns = []intentPattern{
	{IntentGreetingTime, regexp.MustCompile(`(?i)\b(good morning|good night|good evening|good afternoon)\b`)},
	{IntentGreetingGeneral, regexp.MustCompile(`(?i)^(hi|hello|hey|hii|helo|hiya|yo)([.!?\s]|$)`)},
	{IntentHowAreYou, regexp.MustCompile(`(?i)\b(how are you|how's it going|how r u|how are u)\b`)},
	{IntentMoodBored, regexp.MustCompile(`(?i)\b(bored|boring|nothing to do)\b`)},
	{IntentMoodTired, regexp.MustCompile(`(?i)\b(tired|sleepy|exhausted)\b`)},
	{IntentMoodHappy, regexp.MustCompile(`(?i)\b(happy|great|awesome|good mood)\b`)},
	{IntentMoodSad, regexp.MustCompile(`(?i)\b(sad|down|unhappy|depressed)\b`)},
	{IntentThanks, regexp.MustCompile(`(?i)\b(thank you|thanks|thx|ty)\b`)},
	{IntentSorry, regexp.MustCompile(`(?i)\b(sorry|my bad|sry)\b`)},
	{IntentGoodbye, regexp.MustCompile(`(?i)\b(bye|goodbye|see you|gtg|g2g|night|cya)\b`)},
	{IntentReflectBack, regexp.MustCompile(`(?i)\b(and you|what about you)\b`)},
	{IntentAskName, regexp.MustCompile(`(?i)\b(your name|who are you|what'?s your name)\b`)},
	{IntentAskLocation, regexp.MustCompile(`(?i)\b(where are you from|where r u|which city|where do you live)\b`)},
	{IntentAskJob, regexp.MustCompile(`(?i)\b(what do you do|your job|work as|profession)\b`)},
	{IntentAskHobby, regexp.MustCompile(`(?i)\b(hobby|what do you do for fun|what are you into)\b`)},
	{IntentAskRelation, regexp.MustCompile(`(?i)\b(boyfriend|girlfriend|partner|dating)\b`)},
	{IntentFood, regexp.MustCompile(`(?i)\b(have you eaten|had dinner|had lunch|hungry)\b`)},
	{IntentWeather, regexp.MustCompile(`(?i)\b(rain|raining|sunny|cold|hot|weather)\b`)},
	{IntentCompliment, regexp.MustCompile(`(?i)\b(nice|sweet|cute|pretty|handsome|good looking)\b`)},
	{IntentLaugh, regexp.MustCompile(`(?i)\b(lol|haha|hehe)\b`)},
	{IntentSmalltalkOK, regexp.MustCompile(`(?i)^(ok|okay|sure|y|n|yes|no|fine)\b`)},
}

// personaResponses maps persona -> intent -> short reply templates.
// Placeholders {name}, {city}, {profession}, {hobby} are filled from the
// virtual profile.
var personaResponses = map[string]map[Intent][]string{
	"friendly": {
		IntentGreetingGeneral: {"hello", "hi there"},
		IntentGreetingTime:    {"good one", "good day"},
		IntentHowAreYou:       {"I'm good ya, you?"},
		IntentMoodBored:       {"aww same, anything to do?"},
		IntentMoodTired:       {"oh no, take rest ya"},
		IntentMoodHappy:       {"that's nice ya"},
		IntentMoodSad:         {"oh no, why so?"},
		IntentThanks:          {"anytime", "no problem"},
		IntentSorry:           {"no worries ya"},
		IntentGoodbye:         {"see you around"},
		IntentReflectBack:     {"same ya, what about you?"},
		IntentAskName:         {"I'm {name}"},
		IntentAskLocation:     {"from {city} only"},
		IntentAskJob:          {"I work as {profession}"},
		IntentAskHobby:        {"I like {hobby}"},
		IntentAskRelation:     {"nah, just single"},
		IntentFood:            {"ya just ate", "not yet, you?"},
		IntentWeather:         {"bit cloudy here", "bit hot here"},
		IntentCompliment:      {"aww thanks ya"},
		IntentLaugh:           {"haha"},
		IntentSmalltalkOK:     {"ya"},
	},
	"witty": {
		IntentGreetingGeneral: {"hello", "hiya"},
		IntentGreetingTime:    {"good one"},
		IntentHowAreYou:       {"surviving ya, you?"},
		IntentMoodBored:       {"bored? risky move"},
		IntentMoodTired:       {"sleep then, genius"},
		IntentMoodHappy:       {"awesome ya"},
		IntentMoodSad:         {"aww, that's rough"},
		IntentThanks:          {"no prob"},
		IntentSorry:           {"it's fine"},
		IntentGoodbye:         {"later"},
		IntentReflectBack:     {"same here, you?"},
		IntentAskName:         {"call me {name}"},
		IntentAskLocation:     {"{city} only"},
		IntentAskJob:          {"I'm {profession}"},
		IntentAskHobby:        {"into {hobby}"},
		IntentAskRelation:     {"nah, just single"},
		IntentFood:            {"ate already", "not yet"},
		IntentWeather:         {"bit meh here"},
		IntentCompliment:      {"haha thanks"},
		IntentLaugh:           {"lol"},
		IntentSmalltalkOK:     {"ok"},
	},
	"chill": {
		IntentGreetingGeneral: {"hello"},
		IntentGreetingTime:    {"nice"},
		IntentHowAreYou:       {"chill as always"},
		IntentMoodBored:       {"same here"},
		IntentMoodTired:       {"rest up"},
		IntentMoodHappy:       {"nice ya"},
		IntentMoodSad:         {"oh ya?"},
		IntentThanks:          {"np"},
		IntentSorry:           {"it's okay"},
		IntentGoodbye:         {"bye"},
		IntentReflectBack:     {"you tell"},
		IntentAskName:         {"{name}"},
		IntentAskLocation:     {"{city}"},
		IntentAskJob:          {"{profession}"},
		IntentAskHobby:        {"{hobby}"},
		IntentAskRelation:     {"nah, just single"},
		IntentFood:            {"yeah ate", "not yet"},
		IntentWeather:         {"bit hot here"},
		IntentCompliment:      {"thanks"},
		IntentLaugh:           {"haha"},
		IntentSmalltalkOK:     {"ok"},
	},
	"curious": {
		IntentGreetingGeneral: {"hi"},
		IntentGreetingTime:    {"good one"},
		IntentHowAreYou:       {"I'm good, you?"},
		IntentMoodBored:       {"oh why bored?"},
		IntentMoodTired:       {"why tired?"},
		IntentMoodHappy:       {"tell me more"},
		IntentMoodSad:         {"what happened?"},
		IntentThanks:          {"you're welcome"},
		IntentSorry:           {"no worries, why?"},
		IntentGoodbye:         {"bye, take care"},
		IntentReflectBack:     {"and you?"},
		IntentAskName:         {"I'm {name}"},
		IntentAskLocation:     {"from {city}"},
		IntentAskJob:          {"I do {profession}"},
		IntentAskHobby:        {"I like {hobby}"},
		IntentAskRelation:     {"nah, just single"},
		IntentFood:            {"what did you eat?"},
		IntentWeather:         {"how's weather there?"},
		IntentCompliment:      {"oh thanks!"},
		IntentLaugh:           {"haha tell more"},
		IntentSmalltalkOK:     {"okay"},
	},
	"reserved": {
		IntentGreetingGeneral: {"hello"},
		IntentGreetingTime:    {"hi"},
		IntentHowAreYou:       {"fine"},
		IntentMoodBored:       {"ok"},
		IntentMoodTired:       {"rest"},
		IntentMoodHappy:       {"good"},
		IntentMoodSad:         {"oh"},
		IntentThanks:          {"welcome"},
		IntentSorry:           {"okay"},
		IntentGoodbye:         {"bye"},
		IntentReflectBack:     {"you?"},
		IntentAskName:         {"{name}"},
		IntentAskLocation:     {"{city}"},
		IntentAskJob:          {"{profession}"},
		IntentAskHobby:        {"{hobby}"},
		IntentAskRelation:     {"nah, just single"},
		IntentFood:            {"yes"},
		IntentWeather:         {"ok"},
		IntentCompliment:      {"thanks"},
		IntentLaugh:           {"ha"},
		IntentSmalltalkOK:     {"ok"},
	},
}

// DetectIntent classifies the given text. Returns IntentUnknown when no
// pattern matches.
func DetectIntent(text string) Intent {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return IntentUnknown
	}
	for _, p := range intentPatterns {
		if p.re.MatchString(t) {
			return p.intent
		}
	}
	return IntentUnknown
}

// PatternProvider answers recognized intents with short persona-flavored
// templates. Unknown intents are left for the next provider.
type PatternProvider struct {
	rng *lockedRand
}

// NewPatternProvider creates a new PatternProvider.
func NewPatternProvider(rng *lockedRand) *PatternProvider {
	return &PatternProvider{rng: rng}
}

// Reply answers the request when its intent is recognized.
func (p *PatternProvider) Reply(ctx context.Context, req *Request) (string, bool, error) {
	intent := DetectIntent(req.Text)
	if intent == IntentUnknown {
		return "", false, nil
	}

	persona := personaResponses["friendly"]
	if req.Profile != nil {
		if pr, ok := personaResponses[req.Profile.Persona]; ok {
			persona = pr
		}
	}

	options, ok := persona[intent]
	if !ok {
		return "", false, nil
	}

	text := fillPlaceholders(p.rng.pick(options), req.Profile)
	return Rephrase(text, p.rng), true, nil
}

// Name returns the provider name.
func (p *PatternProvider) Name() string {
	return "patterns"
}

// fillPlaceholders substitutes profile attributes into a template.
func fillPlaceholders(template string, pr *profile.Profile) string {
	if pr == nil {
		pr = &profile.Profile{}
	}
	r := strings.NewReplacer(
		"{name}", pr.DisplayName,
		"{city}", pr.City,
		"{profession}", pr.Profession,
		"{hobby}", pr.Hobby,
	)
	return strings.TrimSpace(r.Replace(template))
}
