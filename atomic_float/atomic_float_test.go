package atomic_float

import (
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestAtomicFloat64(t *testing.T) {
	Convey("When an AtomicFloat64 is created", t, func() {
		Convey("The zero value reads as zero", func() {
			var af AtomicFloat64
			So(af.AtomicRead(), ShouldEqual, 0.0)
		})

		Convey("AtomicSet overwrites the value", func() {
			var af AtomicFloat64
			af.AtomicSet(1.0)
			af.AtomicSet(0.28)
			So(af.AtomicRead(), ShouldEqual, 0.28)
		})
	})

	Convey("When atomicAdd is called", t, func() {
		Convey("When multiple writers increment and decrement the float value concurrently", func() {
			af := &AtomicFloat64{}
			numOps := 3000
			numWriters := 50

			start := make(chan struct{})
			wg := sync.WaitGroup{}
			wg.Add(numWriters * 2)
			adder := func(addend float64) {
				<-start
				for i := 0; i < numOps; i++ {
					af.AtomicAdd(addend)
				}
				wg.Done()
			}

			for i := 0; i < numWriters; i++ {
				go adder(1.0)
				go adder(-1.0)
			}

			// Wait for goroutines to begin
			time.Sleep(time.Millisecond * 10)
			close(start)
			wg.Wait()
			So(af.AtomicRead(), ShouldEqual, 0.0)
		})

		Convey("When readers observe a single writer", func() {
			af := &AtomicFloat64{}
			numOps := 5000

			done := make(chan struct{})
			sawDecrease := false
			go func() {
				defer close(done)
				last := 0.0
				for i := 0; i < numOps; i++ {
					val := af.AtomicRead()
					if val < last {
						sawDecrease = true
					}
					last = val
				}
			}()

			for i := 0; i < numOps; i++ {
				So(af.AtomicAdd(1.0), ShouldEqual, float64(i+1))
			}
			<-done
			So(sawDecrease, ShouldBeFalse)
		})
	})
}
