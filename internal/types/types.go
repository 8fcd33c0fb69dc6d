// Package types holds the shared data structures used across the
// application. Handlers, storage backends, and the upload store all import
// types without depending on each other, which keeps import cycles away.
package types

import "time"

// DateLayout is the canonical form a date of birth is stored and returned in.
const DateLayout = "2006-01-02"

// RegistrationInput is the loosely-typed form submission after the HTTP
// layer has flattened it into plain strings. Nothing here has been cast or
// validated yet; that happens in the storage layer when the record is built.
type RegistrationInput struct {
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	DateOfBirth    string
	Address        string
	City           string
	State          string
	Pincode        string
	AadharNumber   string
	AadharFile     string
	SignatureFile  string
	AgreeTerms     bool
	AgreeMarketing bool
	CourseName     string
}

// Registration is one persisted course-registration record.
//
// Struct tags:
//
//  1. json:"..."     — camelCase keys, the shape admins see in the listing.
//  2. bson:"..."     — document field names used by the MongoDB backend.
//     The unique indexes are built on these names.
//  3. validate:"..." — rules checked by go-playground/validator before any
//     backend accepts the record.
type Registration struct {
	ID             string    `json:"id"                    bson:"_id"`
	FirstName      string    `json:"firstName"             bson:"firstName"     validate:"required"`
	LastName       string    `json:"lastName"              bson:"lastName"      validate:"required"`
	Email          string    `json:"email"                 bson:"email"         validate:"required,email"`
	Phone          string    `json:"phone"                 bson:"phone"         validate:"omitempty,phone"`
	DateOfBirth    string    `json:"dateOfBirth,omitempty" bson:"dateOfBirth,omitempty"`
	Address        string    `json:"address"               bson:"address"`
	City           string    `json:"city"                  bson:"city"`
	State          string    `json:"state"                 bson:"state"`
	Pincode        string    `json:"pincode"               bson:"pincode"       validate:"omitempty,number,len=6"`
	AadharNumber   string    `json:"aadharNumber"          bson:"aadharNumber"  validate:"omitempty,number,len=12"`
	AadharFile     string    `json:"aadharFile"            bson:"aadharFile"    validate:"required"`
	SignatureFile  string    `json:"signatureFile"         bson:"signatureFile" validate:"required"`
	AgreeTerms     bool      `json:"agreeTerms"            bson:"agreeTerms"`
	AgreeMarketing bool      `json:"agreeMarketing"        bson:"agreeMarketing"`
	CourseName     string    `json:"courseName"            bson:"courseName"`
	CreatedAt      time.Time `json:"createdAt"             bson:"createdAt"`
}
