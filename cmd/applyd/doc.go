// Command applyd is the job application queue: `applyd run` starts the
// daemon (worker pool plus HTTP API), `applyd worker` runs one extra worker
// process, and the remaining subcommands enqueue, search, and manage the
// queue directly against the shared database.
package main
