/*
Package fchecker is a UDP heartbeat failure detector.

A Detector answers heartbeats sent to its ack address and can monitor any
number of remote detectors. A remote that misses LostMsgThresh consecutive
heartbeats is reported once on Notify. Losses are only counted once the
remote has acked a first heartbeat, so peers may start in any order.
*/
package fchecker

import (
	"bytes"
	"encoding/gob"
	"errors"
	"log"
	"net"
	"sync"
	"time"
)

// Heartbeat message.
type HBeatMessage struct {
	EpochNonce uint64 // Identifies this monitor.
	SeqNum     uint64 // Unique for each heartbeat of a monitor.
}

// An ack message; response to a heartbeat.
type AckMessage struct {
	HBEatEpochNonce uint64 // Copy of what was received in the heartbeat.
	HBEatSeqNum     uint64 // Copy of what was received in the heartbeat.
}

// Notification of a failure.
type FailureDetected struct {
	UDPIpPort string    // The RemoteIP:RemotePort of the failed node.
	Timestamp time.Time // The time when the failure was detected.
}

// DEFAULT_TIMEOUT is how long a monitor waits for an ack before it counts
// the heartbeat as lost.
const DEFAULT_TIMEOUT = 3 * time.Second

var ErrStopped = errors.New("fcheck: detector stopped")

type Detector struct {
	// Timeout bounds the wait for each ack; Interval spaces heartbeats
	// after an ack. Set both before calling Monitor.
	Timeout  time.Duration
	Interval time.Duration

	conn     *net.UDPConn
	notifyCh chan FailureDetected
	stop     chan struct{}
	wg       sync.WaitGroup

	mu       sync.Mutex
	monitors []*net.UDPConn
	stopped  bool
}

// Start listens for heartbeats on ackLocalAddr (use port 0 for any port).
func Start(ackLocalAddr string) (*Detector, error) {
	addr, err := net.ResolveUDPAddr("udp", ackLocalAddr)
	if err != nil {
		log.Printf("fcheck: Start: could not resolve %v: %v\n", ackLocalAddr, err)
		return nil, err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		log.Printf("fcheck: Start: could not listen for heartbeats: %v\n", err)
		return nil, err
	}

	d := &Detector{
		Timeout:  DEFAULT_TIMEOUT,
		Interval: DEFAULT_TIMEOUT / 3,
		conn:     conn,
		notifyCh: make(chan FailureDetected, 16),
		stop:     make(chan struct{}),
	}
	d.wg.Add(1)
	go d.respond()
	return d, nil
}

// Addr is the address heartbeats should be sent to.
func (d *Detector) Addr() string {
	return d.conn.LocalAddr().String()
}

func (d *Detector) Notify() <-chan FailureDetected {
	return d.notifyCh
}

// Monitor sends heartbeats to remote until it fails or the detector stops.
func (d *Detector) Monitor(remote string, epochNonce uint64, lostMsgThresh uint8) error {
	remoteAddr, err := net.ResolveUDPAddr("udp", remote)
	if err != nil {
		log.Printf("fcheck: Monitor: resolveUDPaddr error: %v\n", err)
		return err
	}
	conn, err := net.DialUDP("udp", nil, remoteAddr)
	if err != nil {
		log.Printf("fcheck: Monitor: UDP dialing error: %s\n", err)
		return err
	}

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		conn.Close()
		return ErrStopped
	}
	d.monitors = append(d.monitors, conn)
	d.mu.Unlock()

	if lostMsgThresh == 0 {
		lostMsgThresh = 1
	}
	log.Printf("fcheck: Monitor: beginning to monitor %v from %v\n", conn.RemoteAddr(), conn.LocalAddr())
	d.wg.Add(1)
	go d.monitor(conn, remote, epochNonce, lostMsgThresh)
	return nil
}

func (d *Detector) monitor(conn *net.UDPConn, remote string, epochNonce uint64, lostMsgThresh uint8) {
	defer d.wg.Done()

	joined := false
	lostMsgs := uint8(0)
	seqNum := uint64(0)
	buf := make([]byte, 1024)
	for {
		select {
		case <-d.stop:
			return
		default:
		}

		acked := false
		sent := writeMessage(HBeatMessage{EpochNonce: epochNonce, SeqNum: seqNum}, conn) == nil
		if !sent {
			time.Sleep(d.Timeout / 4)
		} else if err := conn.SetReadDeadline(time.Now().Add(d.Timeout)); err != nil {
			return
		}

		for sent && !acked {
			n, err := conn.Read(buf)
			if err != nil {
				if e, ok := err.(net.Error); ok && e.Timeout() {
					break
				}
				// closed by Stop, or the remote port is unreachable
				select {
				case <-d.stop:
					return
				default:
				}
				time.Sleep(d.Timeout / 4)
				break
			}
			var ack AckMessage
			if err := gob.NewDecoder(bytes.NewReader(buf[:n])).Decode(&ack); err != nil {
				continue
			}
			// acks for older heartbeats still prove liveness
			if ack.HBEatEpochNonce == epochNonce && ack.HBEatSeqNum <= seqNum {
				acked = true
			}
		}
		seqNum++

		if !acked {
			if !joined {
				continue
			}
			lostMsgs++
			if lostMsgs >= lostMsgThresh {
				log.Printf("fcheck: monitor: failure of %v detected after %d lost heartbeats\n", remote, lostMsgs)
				conn.Close()
				select {
				case d.notifyCh <- FailureDetected{UDPIpPort: remote, Timestamp: time.Now()}:
				case <-d.stop:
				}
				return
			}
			continue
		}

		if !joined {
			log.Printf("fcheck: monitor: %v joined\n", remote)
			joined = true
		}
		lostMsgs = 0
		select {
		case <-d.stop:
			return
		case <-time.After(d.Interval):
		}
	}
}

func (d *Detector) respond() {
	defer d.wg.Done()

	buf := make([]byte, 1024)
	for {
		n, srcAddr, err := d.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		var hBeat HBeatMessage
		if err := gob.NewDecoder(bytes.NewReader(buf[:n])).Decode(&hBeat); err != nil {
			continue
		}
		ack := AckMessage{HBEatEpochNonce: hBeat.EpochNonce, HBEatSeqNum: hBeat.SeqNum}
		var msgBuf bytes.Buffer
		if err := gob.NewEncoder(&msgBuf).Encode(ack); err != nil {
			log.Printf("fcheck: respond: encode error: %s\n", err)
			continue
		}
		if _, err := d.conn.WriteToUDP(msgBuf.Bytes(), srcAddr); err != nil {
			log.Printf("fcheck: respond: UDP write error: %s\n", err)
		}
	}
}

// Stop closes every socket and waits for the detector's goroutines.
func (d *Detector) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.stop)
	d.conn.Close()
	for _, conn := range d.monitors {
		conn.Close()
	}
	d.mu.Unlock()

	d.wg.Wait()
	log.Println("fcheck: Stop: stopped monitor & monitored")
}

func writeMessage(msg interface{}, conn *net.UDPConn) error {
	var msgBuf bytes.Buffer
	if err := gob.NewEncoder(&msgBuf).Encode(msg); err != nil {
		log.Printf("fcheck: writeMessage: encode error: %s\n", err)
		return err
	}
	if _, err := conn.Write(msgBuf.Bytes()); err != nil {
		log.Printf("fcheck: writeMessage: UDP write error: %s\n", err)
		return err
	}
	return nil
}
