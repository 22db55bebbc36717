// Package apierr normalizes every failed request into a single Envelope shape
// ({status, message, fieldErrors}) regardless of how the server or transport
// reported it. Field error paths are mapped onto the dotted keys used by form
// state ("workEmail", "email.0"); form-level keys such as "form", "__all__" or
// "non_field_errors" become the envelope message when the server omitted one.
package apierr
