// Package services talks to the Spotify Web API and accounts service.
//
// # Client and Accounts
//
// A [Client] holds the transport (base URL, [http.Client], optional request pacing) and hands out an
// [Account] per access token. Every [Account] implements [Service], so a transfer works with two
// accounts backed by one client.
//
// # Pagination
//
// [FetchAllPages] walks cursor-paginated collections ({items, next}) sequentially until next is null,
// returning the concatenation of every page in server order. [FetchFollowedArtists] does the same for
// the followed-artists envelope, which nests the cursor under "artists".
//
// # Authentication
//
// [Authenticator] wraps [oauth2.Config] with the scopes needed to read one library and write another.
// State values carry the session slot they were issued for ([NewState], [SlotFromState]).
//
// # Error Handling
//
// Failed calls return [*RemoteAPIError] whose message is the provider's own where one exists. It wraps:
//   - [shared.ErrAPIRequest] : structured error body or transport failure
//   - [shared.ErrTokenExpired] : 401 from the Web API
//   - [shared.ErrNotRegistered] : 403 without a JSON body (account not allowlisted)
//   - [shared.ErrMalformedResponse] : any other non-JSON body
//   - [shared.ErrAuthFailed], [shared.ErrRefreshFailed] : token endpoint failures
package services
