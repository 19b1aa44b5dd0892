// Package driver manages the lifecycle of a single lazily-created test resource, such as a
// browser session or a database connection.
//
// A Manager is given a Backend, which knows how to create and dispose one kind of resource.
// The Manager creates the resource on the first Acquire, returns the same instance until it is
// released, and can be acquired again after Release.
package driver
