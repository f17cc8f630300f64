package main

import (
	"flag"
	"log"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/project-spencer/nadir/pkg/nbar"
)

// a complete scene is a .SAFE directory that already contains its product
// metadata; imagery lands before the metadata in a normal transfer
func checkScene(nameCheck *regexp.Regexp, scenePath string, cog bool, toInt bool) error {
	base := path.Base(scenePath)

	if !strings.HasSuffix(base, ".SAFE") || !nameCheck.MatchString(base) {
		// log.Printf("ignoring %s", base)
		return nil
	}

	if _, err := os.Stat(path.Join(scenePath, "MTD_MSIL2A.xml")); err != nil {
		log.Printf("scene %s not complete yet, skipping", base)
		return nil
	}

	if _, err := os.Stat(path.Join(scenePath, "NBAR")); err == nil {
		log.Printf("scene %s already corrected, skipping", base)
		return nil
	}

	log.Printf("correcting scene %s", base)

	err := nbar.Scene(scenePath, nbar.SceneOptions{
		COG:   cog,
		Int16: toInt,
	})

	if err != nil {
		return err
	}

	log.Printf("scene %s done", base)

	return nil
}

func main() {
	log.SetPrefix("[watch] ")
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.LstdFlags | log.LUTC)

	var monitorDir string
	var cog bool
	var toInt bool
	var resume bool

	flag.StringVar(&monitorDir, "monitor-dir", "", "directory where scenes land")
	flag.BoolVar(&cog, "cog", true, "write cloud optimized GeoTIFF")
	flag.BoolVar(&toInt, "int16", false, "round output to int16")
	flag.BoolVar(&resume, "resume", false, "also correct scenes already present")

	flag.Parse()

	if monitorDir == "" {
		log.Fatal("-monitor-dir is required")
	}

	nameCheck := regexp.MustCompile(`^S2[A-D]_MSIL2A_\w+\.SAFE$`)

	if resume {
		f, err := os.ReadDir(monitorDir)

		if err != nil {
			log.Fatalf("could not read directory %s: %s", monitorDir, err)
		}

		for _, file := range f {
			if !file.IsDir() {
				continue
			}

			err := checkScene(nameCheck, path.Join(monitorDir, file.Name()), cog, toInt)
			if err != nil {
				log.Println("error correcting scene:", err)
			}
		}
	}

	log.Printf("monitoring directory %s", monitorDir)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Fatal(err)
	}
	defer watcher.Close()

	err = watcher.Add(monitorDir)
	if err != nil {
		log.Fatal(err)
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				log.Println("watch stopped")
				return
			}

			if !event.Has(fsnotify.Create) {
				continue
			}

			// a new scene directory: start watching inside it, the
			// metadata file arriving last marks it as complete
			if strings.HasSuffix(event.Name, ".SAFE") {
				if err := watcher.Add(event.Name); err != nil {
					log.Println("could not watch scene directory:", err)
				}
				continue
			}

			if path.Base(event.Name) != "MTD_MSIL2A.xml" {
				continue
			}

			err := checkScene(nameCheck, path.Dir(event.Name), cog, toInt)
			if err != nil {
				log.Println("error correcting scene:", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				log.Println("watch stopped")
				return
			}
			log.Println("error:", err)
		}
	}
}
