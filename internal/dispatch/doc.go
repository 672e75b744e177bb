// Package dispatch translates named operations into todo store calls.
//
// An operation request carries an operation name (create, list, complete,
// delete, get) and a JSON argument bundle. The dispatcher validates both,
// invokes the matching store method, and wraps the outcome in a Response
// with a success flag. Failures are classified as InvalidArgument,
// NotFound, or UnsupportedOperation and never escape as Go errors.
package dispatch
