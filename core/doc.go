// Package core holds the data model shared by every stage of the source
// discovery pipeline: search results and their source classification,
// extracted text features, and relevance verdicts.
package core
