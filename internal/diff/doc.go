// Package diff parses unified diff text into an addressable structural
// model and renders the model back into diff text.
//
// Every rendered content line carries a 1-based diff position matching the
// review API's addressing scheme; getting this count wrong silently breaks
// every downstream inline comment, so the counting rules live here and
// nowhere else.
package diff
