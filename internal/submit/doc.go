// Package submit delivers a merged review to a pull request, degrading
// through a fallback cascade on structural rejections: batch review,
// per-comment retries, multi-line downgrade to single-line, and finally
// a plain conversation comment. Review content is never silently lost.
package submit
