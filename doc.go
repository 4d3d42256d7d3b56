// Package feedkit is a PubSubHubbub (WebSub) subscriber library for Go: it keeps
// subscription records, answers hub verification requests and accepts content
// distributions on a public callback. The reader and writer subpackages parse and
// produce RSS and Atom feeds through pluggable extension registries.
//
// Works both as a library for embedding in your application AND as a standalone
// callback server (cmd/feedkit-server) with a REST API for managing subscriptions.
//
// # Features
//
//   - Callback state machine for hub verification (GET) and content distribution (POST)
//   - Subscription Store with clock-driven lease and expiration bookkeeping
//   - Verify tokens stored only as SHA-256 hashes, compared in constant time
//   - X-Hub-Signature checking for subscriptions created with a secret
//   - Subscriber for sending subscribe and unsubscribe requests to hubs
//   - PurgeWorker that removes subscriptions whose lease ran out
//   - Storage adapters: Relica (MySQL, PostgreSQL, SQLite), Redis and in-memory
//   - Embedded SQL migrations
//   - Options Pattern for every service, bring your own Logger and NotificationService
//
// # Quick Start
//
// Apply the migrations and create a store:
//
//	db, _ := sql.Open("sqlite3", "feedkit.db")
//	if err := feedkit.ApplyMigrations(ctx, db); err != nil {
//	    log.Fatal(err)
//	}
//	repos := relica.NewRepositories(db, "sqlite3")
//
//	store, _ := feedkit.NewStore(
//	    feedkit.WithStoreRepository(repos.Subscription),
//	    feedkit.WithStoreClock(feedkit.SystemClock{}),
//	)
//
// Serve the callback and subscribe through a hub:
//
//	callback, _ := feedkit.NewCallback(
//	    feedkit.WithCallbackStore(store),
//	    feedkit.WithFeedProcessor(processor),
//	)
//	http.Handle("/callback/", callback)
//
//	subscriber, _ := feedkit.NewSubscriber(
//	    feedkit.WithSubscriberStore(store),
//	    feedkit.WithCallbackBaseURL("https://example.com/callback"),
//	)
//	sub, err := subscriber.Subscribe(ctx, feedkit.SubscribeRequest{
//	    HubURL:   "https://hub.example.com/",
//	    TopicURL: "https://example.com/feed.xml",
//	})
//
// Purge expired subscriptions in the background:
//
//	worker, _ := feedkit.NewPurgeWorker(feedkit.WithPurgeStore(store))
//	go worker.Run(ctx, time.Minute)
//
// # Subscription Lifecycle
//
//  1. SUBSCRIBE
//     Subscriber → store unverified record (hashed verify token)
//     → POST hub.mode=subscribe to the hub
//
//  2. VERIFY (hub → callback GET)
//     Callback → find record by key → compare verify token hash
//     → mark verified, expiration = now + lease → echo hub.challenge
//
//  3. DISTRIBUTE (hub → callback POST)
//     Callback → check Content-Type → find record
//     → hand payload to the FeedProcessor → 200 with X-Hub-On-Behalf-Of
//
//  4. EXPIRE / UNSUBSCRIBE
//     PurgeWorker deletes verified records past their expiration;
//     a confirmed hub.mode=unsubscribe deletes the record immediately.
//
// Every rejected callback request is answered with an empty 404 and leaves the
// store untouched.
//
// # Database Schema
//
//	feedkit_subscription           - subscription records
//	feedkit_schema_migrations      - applied migration versions
//
// See the examples/ directory for a complete walk through.
package feedkit
