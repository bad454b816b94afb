// Package extractors turns uploaded documents into plain text for the
// pipeline. Each subpackage implements driven.TextExtractor for one family
// of formats; Registry picks the extractor for an upload by MIME type,
// falling back to the file extension.
package extractors
