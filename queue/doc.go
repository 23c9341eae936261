/*
Package queue defines the tasks a job is split into, an interface for
a Queue to manage them, and the worker loop that consumes them.

It also provides an in-memory implementation of the Queue interface
*/
package queue
