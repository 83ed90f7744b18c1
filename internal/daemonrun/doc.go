// Package daemonrun hosts the daemon process main loop shared by the
// `cageclock daemon` command and the cageclockd binary.
package daemonrun
