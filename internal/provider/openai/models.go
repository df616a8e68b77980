package openai

import "sort"

// chatModels are the chat completion models accepted without configuration.
var chatModels = []string{
	"gpt-3.5-turbo",
	"gpt-3.5-turbo-16k",
	"gpt-4",
	"gpt-4-turbo",
	"gpt-4o",
	"gpt-4o-mini",
}

type modelSet map[string]struct{}

func newModelSet(groups ...[]string) modelSet {
	set := make(modelSet)
	for _, group := range groups {
		for _, model := range group {
			if model != "" {
				set[model] = struct{}{}
			}
		}
	}
	return set
}

func (s modelSet) has(model string) bool {
	_, ok := s[model]
	return ok
}

func (s modelSet) sorted() []string {
	models := make([]string, 0, len(s))
	for model := range s {
		models = append(models, model)
	}
	sort.Strings(models)
	return models
}
