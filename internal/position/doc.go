// Package position resolves proposed comment anchors to lines the review
// API will actually accept.
package position
