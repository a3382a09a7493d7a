// package importer resolves batches of YouTube links into roadmap videos.
//
// [Engine] fans lookups out to a small worker pool behind a shared rate limiter so that pasting a long
// list of links, or a whole playlist, does not hammer the oEmbed endpoint. Results keep input order.
// Progress is reported through an optional channel; sends never block, so a slow or absent reader
// only loses updates.
package importer
