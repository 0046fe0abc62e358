// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package catalog talks to the media services behind nominations.

# Collaborators

  - Library: the local media server (JellyfinClient)
  - Catalog: the external movie database (JellyseerrClient)
  - Requester: the acquisition service (JellyseerrClient)

MockLibrary implements all three over a fixed list of films and is used
when MOCK_MEDIA is set.

# Search

Searcher fans a query out to the library and the catalog with an errgroup.
Catalog hits whose TMDb id is already in the library are dropped, so each
film shows up once.
*/
package catalog
