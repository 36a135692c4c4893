package utils

//ImageFormField is the multipart field carrying an uploaded image
const ImageFormField = "image"

//VideoFormField is the multipart field carrying an uploaded video
const VideoFormField = "video"

//AnnotatedImageExt is the extension annotated images are stored with
const AnnotatedImageExt = ".jpg"

//AnnotatedVideoExt is the extension annotated videos are stored with (matches the MJPG codec default)
const AnnotatedVideoExt = ".avi"

//KeypointsExt is the extension of the per frame keypoints file written next to an annotated video (one JSON document per line)
const KeypointsExt = ".jsonl"

//MaxUploadSize is the largest request body the image endpoints read, bigger uploads are refused
const MaxUploadSize = 32 << 20

//ImageExtensions is the list of image file extensions the annotate endpoints accept
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".webp"}
