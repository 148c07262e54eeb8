package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ivlev/segment2video/internal/system"
)

func (p *VideoProject) showStats(res *Result) {
	t := p.timings
	totalTime := time.Since(t.start)
	gatherTime := t.gathered.Sub(t.start)
	encodeTime := t.sequenced.Sub(t.gathered)
	finalizeTime := t.sealed.Sub(t.sequenced)
	composeTime := t.composed.Sub(t.sealed)
	fps := float64(res.Appended) / totalTime.Seconds()

	mem := "n/a"
	if snap, err := system.TakeSnapshot(); err == nil {
		mem = snap.String()
	} else {
		fmt.Printf("[!] Не удалось снять метрики процесса: %v\n", err)
	}

	report := fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Run: %s\n"+
			"Total Time: %.2fs\n"+
			"Segmentation: %.2fs\n"+
			"Compositing + Encoding: %.2fs\n"+
			"Finalize: %.2fs\n"+
			"Muxing: %.2fs\n"+
			"Frames: %d (skipped %d)\n"+
			"Effective FPS: %.2f\n"+
			"Memory: %s\n"+
			"----------------------------\n",
		p.Config.BuildVersion, res.RunID, totalTime.Seconds(), gatherTime.Seconds(), encodeTime.Seconds(),
		finalizeTime.Seconds(), composeTime.Seconds(), res.Appended, len(res.Report.Skipped), fps, mem,
	)
	fmt.Print(report)

	// Логирование в файл
	logEntry := fmt.Sprintf("[%s] Build: %s | Input: %s | Frames: %d | Total: %.2fs | Segment: %.2fs | Encode: %.2fs | FPS: %.2f | %s\n",
		time.Now().Format("2006-01-02 15:04:05"),
		p.Config.BuildVersion,
		filepath.Base(p.Config.InputPath),
		res.Appended,
		totalTime.Seconds(),
		gatherTime.Seconds(),
		encodeTime.Seconds(),
		fps,
		mem,
	)

	f, err := os.OpenFile("benchmark.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		f.WriteString(logEntry)
		f.Close()
	} else {
		fmt.Printf("[!] Не удалось записать benchmark.log: %v\n", err)
	}
}
