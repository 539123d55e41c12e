// Package ingest pulls documents from source connectors and runs them
// through the processing pipeline: chunking, embedding, relationship
// derivation, and context propagation.
//
// Sources are pull-based. The pipeline asks each Source for documents
// newer than its sync cursor, so an interrupted sync resumes where it
// left off instead of re-reading the whole corpus.
package ingest
