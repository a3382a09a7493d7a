// Package services implements the HTTP clients StudyFlow depends on.
//
// # YouTube
//
// [ExtractVideoID] accepts watch, youtu.be, embed, v/, shorts and live URLs as well as bare ids.
// [OEmbedService] implements [VideoLookup] against noembed; a failed lookup still yields a video titled
// [FallbackTitle]. [PlaylistService] implements [PlaylistSource] with the ytdlp library.
//
// # Backend
//
// [BackendService] implements the store's Remote interface over the StudyFlow REST API, authenticating
// with the session token as an OAuth2 bearer token. HTTP statuses map to the sentinel errors in shared,
// in particular 409 to [shared.ErrStaleWrite] and 410 to [shared.ErrGone].
//
// # GitHub
//
// [GitHubOAuthConfig] configures the loopback sign-in flow used by the CLI, and [GitHubClient] resolves
// an access token to a [GitHubUser] on the server side.
package services
