package emu

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/GrandpasLoudSlippers/GodotOceanFFTFlugge/compute"
)

// workgroup is the origin of one workgroup in invocation space.
type workgroup struct{ x, y int }

// workerGroups collects the workgroups assigned to one worker goroutine.
type workerGroups struct {
	groups []workgroup
}

// assignGroups distributes workgroups across workers in round robin fashion.
func assignGroups(workerCount int, groups []workgroup) []workerGroups {
	if workerCount < 1 {
		workerCount = 1
	}
	if workerCount > len(groups) {
		workerCount = len(groups)
	}
	buckets := make([]workerGroups, workerCount)
	for idx, g := range groups {
		workerIdx := idx % workerCount
		buckets[workerIdx].groups = append(buckets[workerIdx].groups, g)
	}
	return buckets
}

// dispatch executes every invocation of a groupsX × groupsY dispatch. All
// invocations finish before dispatch returns, which is what gives barriers
// their meaning on this device.
func (d *Device) dispatch(k compute.Kernel, fn compute.HostFunc, res *bound, groupsX, groupsY int) error {
	wx, wy := k.WorkgroupSize[0], k.WorkgroupSize[1]
	groups := make([]workgroup, 0, groupsX*groupsY)
	for gy := 0; gy < groupsY; gy++ {
		for gx := 0; gx < groupsX; gx++ {
			groups = append(groups, workgroup{x: gx * wx, y: gy * wy})
		}
	}
	var eg errgroup.Group
	for _, bucket := range assignGroups(d.workers, groups) {
		eg.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					if sp, ok := r.(slotPanic); ok {
						err = fmt.Errorf("kernel %s: %w: %s of slot %d not permitted", k.Name, compute.ErrBinding, sp.op, sp.slot)
						return
					}
					err = fmt.Errorf("kernel %s panicked: %v", k.Name, r)
				}
			}()
			for _, g := range bucket.groups {
				for ly := 0; ly < wy; ly++ {
					for lx := 0; lx < wx; lx++ {
						fn(g.x+lx, g.y+ly, res)
					}
				}
			}
			return nil
		})
	}
	return eg.Wait()
}
