package models

import (
	"regexp"

	"github.com/go-playground/validator"
)

type Mode string

const (
	ModePart    Mode = "PART"
	ModeFullFit Mode = "FULL_FIT"
)

var modeRule = regexp.MustCompile(`^(PART|FULL_FIT)$`)

func (m Mode) IsValid() bool {
	return modeRule.MatchString(string(m))
}

func ValidateMode(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	// empty means default
	return value == "" || modeRule.MatchString(value)
}

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

var genderRule = regexp.MustCompile(`^(male|female)$`)

func (g Gender) IsValid() bool {
	return genderRule.MatchString(string(g))
}

func ValidateGender(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "" || genderRule.MatchString(value)
}

// Word is what prompts call the subject.
func (g Gender) Word() string {
	if g == GenderMale {
		return "man"
	}
	return "woman"
}

func (g Gender) Possessive() string {
	if g == GenderMale {
		return "his"
	}
	return "her"
}

// Category is the garment body region used by dedicated try-on models.
type Category string

const (
	CategoryUpperBody Category = "upper_body"
	CategoryLowerBody Category = "lower_body"
	CategoryDresses   Category = "dresses"
)

var categoryRule = regexp.MustCompile(`^(upper_body|lower_body|dresses)$`)

func (c Category) IsValid() bool {
	return categoryRule.MatchString(string(c))
}

func ValidateCategory(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "" || categoryRule.MatchString(value)
}
