/*
Package session serialises turns of a conversation thread.

It combines per-process mutexes with an optional distributed locker, so a
thread's load, run and save happen as one unit even across replicas.
*/
package session
