package validator

import "github.com/jinzhu/inflection"

// pluralize and singularize back suggestEntity's "did you mean" guess.
// Isolated here so the inflection import has one obvious home.
func pluralize(word string) string {
	return inflection.Plural(word)
}

func singularize(word string) string {
	return inflection.Singular(word)
}
